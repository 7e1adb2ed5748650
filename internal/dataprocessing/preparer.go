package dataprocessing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"makertrends/internal/calendar"
	"makertrends/internal/equipment"
	"makertrends/internal/files"
	"makertrends/pkg/contracts/domain"
)

// matchUnresolved marks lookup entries for labels that could not be resolved.
const matchUnresolved = "unresolved"

// timestampLayouts are tried in order. Layouts without a zone are read in the
// configured location.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
}

// PreparerConfig holds the reference data the preparer applies to every row.
type PreparerConfig struct {
	Catalog  *equipment.Catalog
	Window   calendar.StudyWindow
	Closures *calendar.ClosureCalendar
	Terms    *calendar.TermCalendar // may be nil
	Location *time.Location
}

// Preparer turns raw usage rows into cleaned records and a discard report.
type Preparer struct {
	logger *slog.Logger
	cfg    PreparerConfig
}

// NewPreparer creates a preparer. Catalog and Closures are required.
func NewPreparer(logger *slog.Logger, cfg PreparerConfig) (*Preparer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("preparer needs an equipment catalog")
	}
	if cfg.Closures == nil {
		return nil, fmt.Errorf("preparer needs a closure calendar")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Terms == nil {
		cfg.Terms, _ = calendar.NewTermCalendar(nil)
	}
	return &Preparer{logger: logger, cfg: cfg}, nil
}

// dedupKey identifies exact duplicate events.
type dedupKey struct {
	timestamp int64
	user      string
	equipment string
	count     int
}

// run holds the state of one Prepare call.
type run struct {
	dataset *domain.PreparedDataset
	lookup  map[string]*domain.EquipmentLookupEntry
	seen    map[dedupKey]struct{}
}

// Prepare parses every input file in order and applies the row rules. A file
// that cannot be read aborts the run; bad rows never do.
func (p *Preparer) Prepare(ctx context.Context, inputs []files.FileInfo) (*domain.PreparedDataset, error) {
	r := &run{
		dataset: &domain.PreparedDataset{Discards: domain.NewDiscardReport()},
		lookup:  make(map[string]*domain.EquipmentLookupEntry),
		seen:    make(map[dedupKey]struct{}),
	}

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := ParseFile(input)
		if err != nil {
			return nil, err
		}
		p.logger.InfoContext(ctx, "Read input file",
			slog.String("file", input.Name),
			slog.Int("rows", len(table.Rows)))
		p.prepareTable(r, table)
	}

	sort.SliceStable(r.dataset.Records, func(i, j int) bool {
		return r.dataset.Records[i].Timestamp.Before(r.dataset.Records[j].Timestamp)
	})
	r.dataset.Lookup = sortedLookup(r.lookup)
	return r.dataset, nil
}

// prepareTable applies the row rules to one parsed table.
func (p *Preparer) prepareTable(r *run, table *RawTable) {
	for _, row := range table.Rows {
		r.dataset.RowsRead++
		rec, reason, detail := p.prepareRow(r, table.Columns, row)
		if reason != "" {
			r.dataset.Discards.Add(domain.DiscardedRow{
				Source: row.Source,
				Reason: reason,
				Detail: detail,
				Raw:    row.Cells,
			})
			continue
		}
		r.dataset.Records = append(r.dataset.Records, rec)
	}
}

func (p *Preparer) prepareRow(r *run, cols ColumnMap, row RawRow) (domain.UsageRecord, domain.DiscardReason, string) {
	if row.Malformed != "" {
		return domain.UsageRecord{}, domain.DiscardMalformedRow, row.Malformed
	}

	rawTime := cols.Get(row.Cells, ColTimestamp)
	ts, ok := p.parseTimestamp(rawTime)
	if !ok {
		return domain.UsageRecord{}, domain.DiscardUnparseableDate, rawTime
	}

	rawLabel := cols.Get(row.Cells, ColEquipment)
	if equipment.Clean(rawLabel) == "" {
		return domain.UsageRecord{}, domain.DiscardMissingEquipment, ""
	}
	res, ok := p.cfg.Catalog.Resolve(rawLabel)
	r.note(rawLabel, res, ok)
	if !ok {
		return domain.UsageRecord{}, domain.DiscardUnknownEquipment, equipment.Clean(rawLabel)
	}

	category := res.EquipmentType
	if rawType := cols.Get(row.Cells, ColEquipmentType); rawType != "" {
		if resolved, ok := p.cfg.Catalog.ResolveCategory(rawType); ok {
			category = resolved
		}
	}

	count := 1
	if rawCount := cols.Get(row.Cells, ColCount); rawCount != "" {
		n, err := strconv.Atoi(rawCount)
		if err != nil || n < 0 {
			return domain.UsageRecord{}, domain.DiscardInvalidCount, rawCount
		}
		count = n
	}

	if !p.cfg.Window.Contains(ts) {
		return domain.UsageRecord{}, domain.DiscardOutsideWindow, ts.Format(time.RFC3339)
	}

	user := userID(cols, row.Cells)
	key := dedupKey{timestamp: ts.UnixNano(), user: user, equipment: res.Equipment, count: count}
	if _, dup := r.seen[key]; dup {
		return domain.UsageRecord{}, domain.DiscardDuplicate, ""
	}
	r.seen[key] = struct{}{}

	week := domain.WeekOf(ts)
	semester, semesterWeek, _ := p.cfg.Terms.Assign(ts)

	return domain.UsageRecord{
		Timestamp:     ts,
		Week:          week,
		Equipment:     res.Equipment,
		EquipmentType: category,
		Count:         count,
		Closure:       p.cfg.Closures.ContainsWeek(week),
		Semester:      semester,
		SemesterWeek:  semesterWeek,
		UserID:        user,
		Source:        row.Source,
	}, "", ""
}

// parseTimestamp tries every known layout.
func (p *Preparer) parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, p.cfg.Location); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// userID returns the anonymized user: an existing ID column is kept, otherwise
// "First Last" is hashed with SHA-256. Rows without either have no user.
func userID(cols ColumnMap, cells []string) string {
	if id := cols.Get(cells, ColUserID); id != "" {
		return id
	}
	if !cols.Has(ColFirstName) && !cols.Has(ColLastName) {
		return ""
	}
	return Anonymize(cols.Get(cells, ColFirstName), cols.Get(cells, ColLastName))
}

// Anonymize hashes a person's name into a stable hex identifier.
func Anonymize(first, last string) string {
	sum := sha256.Sum256([]byte(first + " " + last))
	return hex.EncodeToString(sum[:])
}

// note counts one occurrence of a raw label in the lookup table.
func (r *run) note(rawLabel string, res equipment.Resolution, ok bool) {
	label := equipment.Clean(rawLabel)
	entry, exists := r.lookup[label]
	if !exists {
		entry = &domain.EquipmentLookupEntry{RawLabel: label, Match: matchUnresolved}
		if ok {
			entry.Equipment = res.Equipment
			entry.EquipmentType = res.EquipmentType
			entry.Match = string(res.Match)
		}
		r.lookup[label] = entry
	}
	entry.Occurrences++
}

func sortedLookup(lookup map[string]*domain.EquipmentLookupEntry) []domain.EquipmentLookupEntry {
	entries := make([]domain.EquipmentLookupEntry, 0, len(lookup))
	for _, e := range lookup {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RawLabel < entries[j].RawLabel })
	return entries
}

// Summary returns the discard counts as log attributes.
func Summary(ds *domain.PreparedDataset) []any {
	attrs := []any{
		slog.Int("rows_read", ds.RowsRead),
		slog.Int("records", len(ds.Records)),
		slog.Int("discarded", ds.Discards.Total()),
	}
	for _, reason := range ds.Discards.Reasons() {
		attrs = append(attrs, slog.Int(string(reason), ds.Discards.Counts[reason]))
	}
	return attrs
}
