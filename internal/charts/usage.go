package charts

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"makertrends/pkg/contracts/domain"
)

// Chart names for the usage visualizer.
const (
	ChartWeeklyUsage   = "weekly_usage"
	ChartSemesterHeat  = "semester_heatmap"
	ChartSeasonWeekly  = "season_weekly_usage"
	heatPaletteColours = 16
)

// seasons compared by the season chart, in legend order.
var seasons = []string{"Fall", "Spring"}

// grid is a dense heat map grid indexed [column][row]. Missing cells are NaN.
type grid struct {
	z [][]float64
}

func newGrid(cols, rows int) *grid {
	z := make([][]float64, cols)
	for c := range z {
		z[c] = make([]float64, rows)
		for r := range z[c] {
			z[c][r] = math.NaN()
		}
	}
	return &grid{z: z}
}

func (g *grid) Dims() (int, int) {
	if len(g.z) == 0 {
		return 0, 0
	}
	return len(g.z), len(g.z[0])
}

func (g *grid) Z(c, r int) float64 { return g.z[c][r] }
func (g *grid) X(c int) float64    { return float64(c) }
func (g *grid) Y(r int) float64    { return float64(r) }

// heatMap builds a heat map over g with a fixed palette.
func heatMap(g *grid) *plotter.HeatMap {
	h := plotter.NewHeatMap(g, palette.Heat(heatPaletteColours, 1))
	if h.Min > h.Max {
		h.Min, h.Max = 0, 0
	}
	return h
}

// WeeklyUsage plots total weekly usage with its moving average and trend.
func (r *Renderer) WeeklyUsage(ctx context.Context, series domain.WeeklyUsageSeries) (Result, error) {
	if series.Len() == 0 {
		return r.skip(ctx, ChartWeeklyUsage, "no weekly usage"), nil
	}

	total := make(plotter.XYs, series.Len())
	avg := make(plotter.XYs, series.Len())
	trend := make(plotter.XYs, series.Len())
	labels := make([]string, series.Len())
	for i, p := range series.Points {
		x := float64(i)
		total[i] = plotter.XY{X: x, Y: float64(p.Total)}
		avg[i] = plotter.XY{X: x, Y: p.MovingAverage}
		trend[i] = plotter.XY{X: x, Y: p.Trend}
		labels[i] = p.Week.ISOLabel()
	}

	p := plot.New()
	p.Title.Text = "Makerspace Weekly Usage"
	p.X.Label.Text = "Week"
	p.Y.Label.Text = "Uses"
	p.X.Tick.Marker = labelTicks(labels, maxAxisLabels)
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range []struct {
		name string
		xys  plotter.XYs
	}{
		{"Total", total},
		{"Moving average", avg},
		{"Trend", trend},
	} {
		line, err := plotter.NewLine(s.xys)
		if err != nil {
			return Result{}, err
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	w, h := r.size()
	return r.save(ctx, ChartWeeklyUsage, p, w, h)
}

// semesterOrder returns semester names in order of first appearance.
func semesterOrder(counts []domain.SemesterWeekCount) []string {
	var order []string
	seen := make(map[string]bool)
	for _, c := range counts {
		if !seen[c.Semester] {
			seen[c.Semester] = true
			order = append(order, c.Semester)
		}
	}
	return order
}

// SemesterHeatmap plots usage per semester week, one row per semester.
func (r *Renderer) SemesterHeatmap(ctx context.Context, counts []domain.SemesterWeekCount) (Result, error) {
	if len(counts) == 0 {
		return r.skip(ctx, ChartSemesterHeat, "no semester week counts"), nil
	}

	semesters := semesterOrder(counts)
	row := make(map[string]int, len(semesters))
	for i, s := range semesters {
		row[s] = i
	}
	maxWeek := 0
	for _, c := range counts {
		if c.SemesterWeek > maxWeek {
			maxWeek = c.SemesterWeek
		}
	}

	g := newGrid(maxWeek, len(semesters))
	for _, c := range counts {
		if c.SemesterWeek < 1 {
			continue
		}
		g.z[c.SemesterWeek-1][row[c.Semester]] = float64(c.Count)
	}

	weekLabels := make([]string, maxWeek)
	for i := range weekLabels {
		weekLabels[i] = strconv.Itoa(i + 1)
	}

	p := plot.New()
	p.Title.Text = "Usage by Semester Week"
	p.X.Label.Text = "Semester week"
	p.X.Tick.Marker = labelTicks(weekLabels, maxAxisLabels*2)
	p.Y.Tick.Marker = labelTicks(semesters, 0)
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(heatMap(g))

	w, h := r.tallSize(len(semesters))
	return r.save(ctx, ChartSemesterHeat, p, w, h)
}

// seasonOf returns the season word of a semester name such as "Fall 2019".
func seasonOf(semester string) string {
	season, _, _ := strings.Cut(strings.TrimSpace(semester), " ")
	return season
}

// SeasonAverages averages each semester week across the semesters of every
// season. The result maps season to semester week to average count.
func SeasonAverages(counts []domain.SemesterWeekCount) map[string]map[int]float64 {
	type acc struct {
		sum float64
		n   int
	}
	sums := make(map[string]map[int]*acc)
	for _, c := range counts {
		season := seasonOf(c.Semester)
		if sums[season] == nil {
			sums[season] = make(map[int]*acc)
		}
		a := sums[season][c.SemesterWeek]
		if a == nil {
			a = &acc{}
			sums[season][c.SemesterWeek] = a
		}
		a.sum += float64(c.Count)
		a.n++
	}

	out := make(map[string]map[int]float64, len(sums))
	for season, weeks := range sums {
		out[season] = make(map[int]float64, len(weeks))
		for w, a := range weeks {
			out[season][w] = a.sum / float64(a.n)
		}
	}
	return out
}

// SeasonWeeklyUsage compares the average Fall and Spring semester week.
func (r *Renderer) SeasonWeeklyUsage(ctx context.Context, counts []domain.SemesterWeekCount) (Result, error) {
	averages := SeasonAverages(counts)

	p := plot.New()
	p.Title.Text = "Average Usage by Semester Week: Fall vs Spring"
	p.X.Label.Text = "Semester week"
	p.Y.Label.Text = "Average uses"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	drawn := 0
	for i, season := range seasons {
		weeks := averages[season]
		if len(weeks) == 0 {
			continue
		}
		keys := make([]int, 0, len(weeks))
		for w := range weeks {
			keys = append(keys, w)
		}
		sort.Ints(keys)

		xys := make(plotter.XYs, len(keys))
		for j, w := range keys {
			xys[j] = plotter.XY{X: float64(w), Y: weeks[w]}
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return Result{}, err
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(season, line, points)
		drawn++
	}

	if drawn == 0 {
		return r.skip(ctx, ChartSeasonWeekly, "no Fall or Spring semesters"), nil
	}

	w, h := r.size()
	return r.save(ctx, ChartSeasonWeekly, p, w, h)
}
