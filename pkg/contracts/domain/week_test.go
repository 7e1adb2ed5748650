package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekOf(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
		iso  string
	}{
		{"monday", time.Date(2015, 1, 5, 9, 0, 0, 0, time.UTC), "2015-01-05", "2015-W02"},
		{"sunday belongs to the previous monday", time.Date(2015, 1, 11, 23, 59, 0, 0, time.UTC), "2015-01-05", "2015-W02"},
		{"friday", time.Date(2020, 3, 20, 12, 0, 0, 0, time.UTC), "2020-03-16", "2020-W12"},
		{"across year end", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), "2020-12-28", "2020-W53"},
		{"local date is used", time.Date(2020, 3, 22, 23, 0, 0, 0, time.FixedZone("PDT", -7*3600)), "2020-03-16", "2020-W12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WeekOf(tt.at)
			assert.Equal(t, tt.want, w.String())
			assert.Equal(t, tt.iso, w.ISOLabel())
			assert.Equal(t, time.Monday, w.Start().Weekday())
			assert.Equal(t, time.Sunday, w.End().Weekday())
		})
	}
}

func TestParseWeek(t *testing.T) {
	w, err := ParseWeek("2020-03-19")
	require.NoError(t, err)
	assert.Equal(t, "2020-03-16", w.String())

	_, err = ParseWeek("2020-W12")
	assert.Error(t, err)
}

func TestWeekOrdering(t *testing.T) {
	a := WeekOf(time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC))
	b := a.Next()

	assert.Equal(t, "2020-01-13", b.String())
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, a, WeekOf(time.Date(2020, 1, 12, 18, 0, 0, 0, time.UTC)), "weeks are comparable")
}

func TestZeroWeek(t *testing.T) {
	var w Week
	assert.True(t, w.IsZero())
	assert.Equal(t, "", w.String())
	assert.Equal(t, "", w.ISOLabel())
}

func TestDiscardReport(t *testing.T) {
	r := NewDiscardReport()
	r.Add(DiscardedRow{Reason: DiscardUnknownEquipment})
	r.Add(DiscardedRow{Reason: DiscardDuplicate})
	r.Add(DiscardedRow{Reason: DiscardUnknownEquipment})

	assert.Equal(t, 3, r.Total())
	assert.Equal(t, []DiscardReason{DiscardDuplicate, DiscardUnknownEquipment}, r.Reasons())
	assert.Len(t, AllDiscardReasons(), 7)
}

func TestSeriesHelpers(t *testing.T) {
	w1 := WeekOf(time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC))
	w2 := w1.Next()
	w3 := w2.Next()

	s := WeeklyUsageSeries{Points: []WeeklyUsagePoint{{Week: w1, Total: 4}, {Week: w3, Total: 7}}}
	total, ok := s.TotalFor(w3)
	assert.True(t, ok)
	assert.Equal(t, 7, total)
	_, ok = s.TotalFor(w2)
	assert.False(t, ok)

	es := EquipmentWeeklySeries{Series: map[string][]EquipmentWeek{
		"Laser Cutter": {{Week: w2}},
		"3D Printer":   {{Week: w1}, {Week: w2}},
	}}
	assert.Equal(t, []string{"3D Printer", "Laser Cutter"}, es.IDs())
	assert.Equal(t, []Week{w1, w2}, es.Weeks())

	rec := UsageRecord{Equipment: "Jacobs Type A", EquipmentType: "Basic 3D Printing"}
	assert.Equal(t, "Jacobs Type A", DimensionEquipment.Of(rec))
	assert.Equal(t, "Basic 3D Printing", DimensionCategory.Of(rec))
}
