package domain

import (
	"sort"
	"time"
)

// UsageRecord is one cleaned equipment-use event. Records are produced once by
// the preparer and never re-normalized downstream.
type UsageRecord struct {
	Timestamp     time.Time `json:"timestamp" validate:"required"`
	Week          Week      `json:"week"`
	Equipment     string    `json:"equipment" validate:"required"`      // canonical name
	EquipmentType string    `json:"equipment_type" validate:"required"` // canonical category
	Count         int       `json:"count" validate:"min=0"`
	Closure       bool      `json:"closure"` // week intersects the closure calendar
	Semester      string    `json:"semester,omitempty"`
	SemesterWeek  int       `json:"semester_week,omitempty"` // 0 when outside every term
	UserID        string    `json:"user_id,omitempty"`
	Source        string    `json:"source,omitempty"` // file:line of the raw row
}

// InSemester reports whether the record was assigned to a term.
func (r UsageRecord) InSemester() bool {
	return r.Semester != "" && r.SemesterWeek > 0
}

// Term is an academic term used for semester-week numbering.
type Term struct {
	ID    string    `json:"id"`
	Name  string    `json:"name" validate:"required"`
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtefield=Start"`
}

// ClosurePeriod is an inclusive date interval during which the facility was closed.
type ClosurePeriod struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtefield=Start"`
}

// DiscardReason tags why a raw row was excluded during preparation.
type DiscardReason string

const (
	DiscardMalformedRow     DiscardReason = "malformed_row"
	DiscardUnparseableDate  DiscardReason = "unparseable_date"
	DiscardMissingEquipment DiscardReason = "missing_equipment"
	DiscardUnknownEquipment DiscardReason = "unknown_equipment"
	DiscardInvalidCount     DiscardReason = "invalid_count"
	DiscardOutsideWindow    DiscardReason = "outside_study_window"
	DiscardDuplicate        DiscardReason = "duplicate"
)

// AllDiscardReasons lists every reason in report order.
func AllDiscardReasons() []DiscardReason {
	return []DiscardReason{
		DiscardDuplicate,
		DiscardInvalidCount,
		DiscardMalformedRow,
		DiscardMissingEquipment,
		DiscardOutsideWindow,
		DiscardUnknownEquipment,
		DiscardUnparseableDate,
	}
}

// DiscardedRow keeps a rejected raw row for later inspection.
type DiscardedRow struct {
	Source string
	Reason DiscardReason
	Detail string
	Raw    []string
}

// DiscardReport tallies rows excluded during preparation.
type DiscardReport struct {
	Counts map[DiscardReason]int
	Rows   []DiscardedRow
}

// NewDiscardReport returns an empty report.
func NewDiscardReport() *DiscardReport {
	return &DiscardReport{Counts: make(map[DiscardReason]int)}
}

// Add records one discarded row.
func (d *DiscardReport) Add(row DiscardedRow) {
	d.Counts[row.Reason]++
	d.Rows = append(d.Rows, row)
}

// Total returns the number of discarded rows.
func (d *DiscardReport) Total() int {
	total := 0
	for _, n := range d.Counts {
		total += n
	}
	return total
}

// Reasons returns the reasons present in the report, sorted by name.
func (d *DiscardReport) Reasons() []DiscardReason {
	reasons := make([]DiscardReason, 0, len(d.Counts))
	for r := range d.Counts {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}

// EquipmentLookupEntry records how one raw label was resolved.
type EquipmentLookupEntry struct {
	RawLabel      string
	Equipment     string
	EquipmentType string
	Match         string // exact, alias, partial or unknown
	Occurrences   int
}

// PreparedDataset is the full output of the preparation stage.
type PreparedDataset struct {
	Records  []UsageRecord
	Lookup   []EquipmentLookupEntry
	Discards *DiscardReport
	RowsRead int
}
