package dataprocessing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makertrends/internal/calendar"
	"makertrends/internal/config"
	"makertrends/internal/equipment"
	"makertrends/internal/files"
	"makertrends/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestPreparer(t *testing.T, allowUnknown bool) *Preparer {
	t.Helper()

	catalog, err := equipment.NewCatalog(config.DefaultCategories(), config.DefaultAliases(), allowUnknown)
	require.NoError(t, err)
	window, err := calendar.NewStudyWindow(date(2015, 1, 1), date(2024, 5, 31))
	require.NoError(t, err)
	closures, err := calendar.NewClosureCalendar([]domain.ClosurePeriod{
		{Name: "COVID-19", Start: date(2020, 3, 14), End: date(2021, 8, 25)},
	})
	require.NoError(t, err)
	terms, err := calendar.NewTermCalendar([]domain.Term{
		{Name: "Spring 2015", Start: date(2015, 1, 13), End: date(2015, 5, 15)},
	})
	require.NoError(t, err)

	p, err := NewPreparer(nil, PreparerConfig{
		Catalog:  catalog,
		Window:   window,
		Closures: closures,
		Terms:    terms,
	})
	require.NoError(t, err)
	return p
}

func prepareCSV(t *testing.T, p *Preparer, content string) *domain.PreparedDataset {
	t.Helper()
	info := writeInput(t, t.TempDir(), "log.csv", content)
	ds, err := p.Prepare(context.Background(), []files.FileInfo{info})
	require.NoError(t, err)
	return ds
}

func TestPrepareRowRules(t *testing.T) {
	p := newTestPreparer(t, false)

	ds := prepareCSV(t, p, "Timestamp,First Name,Last Name,Access Type,Count\n"+
		"2015-01-05 09:00:00,Ada,Lovelace,Jacobs Type A,10\n"+ // kept
		"not a date,Ada,Lovelace,Jacobs Type A,1\n"+ // unparseable_date
		"2015-01-05 10:00:00,Ada,Lovelace,,1\n"+ // missing_equipment
		"2015-01-05 11:00:00,Ada,Lovelace,Lathe,1\n"+ // unknown_equipment
		"2015-01-05 12:00:00,Ada,Lovelace,Jacobs Type A,-2\n"+ // invalid_count
		"2015-01-05 12:00:00,Ada,Lovelace,Jacobs Type A,two\n"+ // invalid_count
		"2014-12-31 12:00:00,Ada,Lovelace,Jacobs Type A,1\n"+ // outside_study_window
		"2015-01-05 09:00:00,Ada,Lovelace,Jacobs Type A,10\n"+ // duplicate
		"2015-01-05 09:00:00,Alan,Turing,Jacobs Type A,10\n"+ // same time, different user: kept
		"2015-01-06 09:00:00,Ada,Lovelace\n"+ // malformed_row
		"2020-03-20 15:00:00,Ada,Lovelace,Jacobs Laser Access,5\n") // kept, closure

	assert.Equal(t, 11, ds.RowsRead)
	require.Len(t, ds.Records, 3)
	assert.Equal(t, 8, ds.Discards.Total())
	assert.Equal(t, map[domain.DiscardReason]int{
		domain.DiscardUnparseableDate:  1,
		domain.DiscardMissingEquipment: 1,
		domain.DiscardUnknownEquipment: 1,
		domain.DiscardInvalidCount:     2,
		domain.DiscardOutsideWindow:    1,
		domain.DiscardDuplicate:        1,
		domain.DiscardMalformedRow:     1,
	}, ds.Discards.Counts)

	first := ds.Records[0]
	assert.Equal(t, "Jacobs Type A", first.Equipment)
	assert.Equal(t, "Basic 3D Printing", first.EquipmentType)
	assert.Equal(t, 10, first.Count)
	assert.Equal(t, "2015-01-05", first.Week.String())
	assert.False(t, first.Closure)
	assert.Equal(t, Anonymize("Ada", "Lovelace"), first.UserID)
	assert.Equal(t, "log.csv:2", first.Source)
	assert.Empty(t, first.Semester, "the day before the term starts is outside it")

	closed := ds.Records[2]
	assert.True(t, closed.Closure)
	assert.Equal(t, "2020-03-16", closed.Week.String())
	assert.Equal(t, "Laser Cutting", closed.EquipmentType)
}

func TestPrepareDefaultsAndResolution(t *testing.T) {
	p := newTestPreparer(t, false)

	ds := prepareCSV(t, p, "Date,Access Type,Equipment Category,Unique ID\n"+
		"1/20/2015 3:15:00 PM,Jacobs DiWire Room 220C,,u-1\n"+
		"2015-01-21,jacobs  wood shop (after hours),metal shop,u-2\n"+
		"2015-01-22T08:00:00-08:00,Jacobs Type A,Not A Category,u-3\n")

	require.Len(t, ds.Records, 3)

	alias := ds.Records[0]
	assert.Equal(t, "Jacobs DiWire", alias.Equipment)
	assert.Equal(t, 1, alias.Count, "blank count means one use")
	assert.Equal(t, "u-1", alias.UserID)
	assert.Equal(t, "Spring 2015", alias.Semester)
	assert.Equal(t, 2, alias.SemesterWeek)

	partial := ds.Records[1]
	assert.Equal(t, "Jacobs Wood Shop", partial.Equipment)
	assert.Equal(t, "Metal Shop", partial.EquipmentType, "a known raw category wins")

	assert.Equal(t, "Basic 3D Printing", ds.Records[2].EquipmentType, "unknown raw categories fall back to the catalog")

	require.Len(t, ds.Lookup, 3)
	assert.Equal(t, "Jacobs DiWire Room 220C", ds.Lookup[0].RawLabel)
	assert.Equal(t, "alias", ds.Lookup[0].Match)
	assert.Equal(t, "jacobs wood shop (after hours)", ds.Lookup[2].RawLabel)
	assert.Equal(t, "partial", ds.Lookup[2].Match)
}

func TestPrepareAllowUnknown(t *testing.T) {
	p := newTestPreparer(t, true)

	ds := prepareCSV(t, p, "Timestamp,Access Type\n"+
		"2016-02-01 10:00:00,Bandsaw\n"+
		"2016-02-01 11:00:00,Bandsaw\n"+
		"2016-02-01 12:00:00,BANDSAW \n")
	require.Len(t, ds.Records, 3)
	assert.Equal(t, equipment.OtherCategory, ds.Records[0].EquipmentType)
	for _, r := range ds.Records {
		assert.Equal(t, "Bandsaw", r.Equipment, "spellings of one unknown label collapse")
	}
	require.Len(t, ds.Lookup, 2)
	assert.Equal(t, "BANDSAW", ds.Lookup[0].RawLabel)
	assert.Equal(t, "Bandsaw", ds.Lookup[1].RawLabel)
	assert.Equal(t, 2, ds.Lookup[1].Occurrences)
	assert.Equal(t, "unknown", ds.Lookup[1].Match)
}

func TestPrepareRecordsSortedAcrossFiles(t *testing.T) {
	p := newTestPreparer(t, false)
	dir := t.TempDir()

	a := writeInput(t, dir, "a.csv", "Timestamp,Access Type\n2016-03-01 10:00:00,Jacobs Type A\n")
	b := writeInput(t, dir, "b.csv", "Timestamp,Access Type\n2016-02-01 10:00:00,Jacobs Type A\n")

	ds, err := p.Prepare(context.Background(), []files.FileInfo{a, b})
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, "b.csv:2", ds.Records[0].Source)
	assert.Equal(t, "a.csv:2", ds.Records[1].Source)
}

func TestPrepareUnreadableFileAborts(t *testing.T) {
	p := newTestPreparer(t, false)
	dir := t.TempDir()

	good := writeInput(t, dir, "a.csv", "Timestamp,Access Type\n2016-03-01 10:00:00,Jacobs Type A\n")
	bad := writeInput(t, dir, "b.csv", "no,header,here\n")

	_, err := p.Prepare(context.Background(), []files.FileInfo{good, bad})
	assert.Error(t, err)
}

func TestAnonymize(t *testing.T) {
	assert.Len(t, Anonymize("Ada", "Lovelace"), 64)
	assert.Equal(t, Anonymize("Ada", "Lovelace"), Anonymize("Ada", "Lovelace"))
	assert.NotEqual(t, Anonymize("Ada", "Lovelace"), Anonymize("Ada", "Byron"))
}

func TestNewPreparerRequiresReferenceData(t *testing.T) {
	_, err := NewPreparer(nil, PreparerConfig{})
	assert.Error(t, err)
}
