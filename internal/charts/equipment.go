package charts

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"makertrends/pkg/contracts/domain"
)

// Chart kinds drawn for each dimension.
const (
	KindRankTrends   = "rank_trends"
	KindShareHeatmap = "share_heatmap"
	KindPopularity   = "popularity"
)

// EquipmentChartName returns the chart name for a dimension, e.g.
// "category_rank_trends".
func EquipmentChartName(dim domain.Dimension, kind string) string {
	return fmt.Sprintf("%s_%s", dim, kind)
}

// Popularity is an identifier's average weekly use over the analysed weeks.
type Popularity struct {
	ID      string
	Total   int
	Average float64
}

// RankByPopularity orders identifiers by total uses, then identifier. Weeks
// without use count as zero in the average.
func RankByPopularity(series domain.EquipmentWeeklySeries) []Popularity {
	weeks := len(series.Weeks())
	out := make([]Popularity, 0, len(series.Series))
	for _, id := range series.IDs() {
		p := Popularity{ID: id}
		for _, c := range series.Series[id] {
			p.Total += c.Count
		}
		if weeks > 0 {
			p.Average = float64(p.Total) / float64(weeks)
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func weekLabels(weeks []domain.Week) ([]string, map[domain.Week]int) {
	labels := make([]string, len(weeks))
	index := make(map[domain.Week]int, len(weeks))
	for i, w := range weeks {
		labels[i] = w.ISOLabel()
		index[w] = i
	}
	return labels, index
}

// RankTrends plots the weekly rank of the most used identifiers. Rank 1 is
// drawn at the top.
func (r *Renderer) RankTrends(ctx context.Context, series domain.EquipmentWeeklySeries) (Result, error) {
	name := EquipmentChartName(series.Dimension, KindRankTrends)
	popular := RankByPopularity(series)
	if len(popular) == 0 {
		return r.skip(ctx, name, "no ranked identifiers"), nil
	}
	if len(popular) > r.cfg.TopN {
		popular = popular[:r.cfg.TopN]
	}

	labels, index := weekLabels(series.Weeks())

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Weekly Rank of the Top %d by %s", len(popular), series.Dimension.Title())
	p.X.Label.Text = "Week"
	p.Y.Label.Text = "Rank"
	p.X.Tick.Marker = labelTicks(labels, maxAxisLabels)
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	maxRank := 1
	for i, pop := range popular {
		cells := series.Series[pop.ID]
		xys := make(plotter.XYs, len(cells))
		for j, c := range cells {
			xys[j] = plotter.XY{X: float64(index[c.Week]), Y: float64(c.Rank)}
			if c.Rank > maxRank {
				maxRank = c.Rank
			}
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return Result{}, err
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		points.Radius = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add(pop.ID, line)
	}

	rankLabels := make([]string, maxRank)
	for i := range rankLabels {
		rankLabels[i] = strconv.Itoa(i + 1)
	}
	ticks := labelTicks(rankLabels, maxAxisLabels)
	for i := range ticks {
		ticks[i].Value++
	}
	p.Y.Tick.Marker = ticks

	w, h := r.size()
	return r.save(ctx, name, p, w, h)
}

// ShareHeatmap plots each identifier's share of weekly usage, most used
// identifier on the top row.
func (r *Renderer) ShareHeatmap(ctx context.Context, series domain.EquipmentWeeklySeries) (Result, error) {
	name := EquipmentChartName(series.Dimension, KindShareHeatmap)
	popular := RankByPopularity(series)
	weeks := series.Weeks()
	if len(popular) == 0 || len(weeks) == 0 {
		return r.skip(ctx, name, "no weekly shares"), nil
	}

	labels, index := weekLabels(weeks)
	ids := make([]string, len(popular))
	g := newGrid(len(weeks), len(popular))
	for row, pop := range popular {
		ids[row] = pop.ID
		for c := range weeks {
			g.z[c][row] = 0
		}
		for _, cell := range series.Series[pop.ID] {
			g.z[index[cell.Week]][row] = cell.Percentage
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Share of Weekly Usage by %s (%%)", series.Dimension.Title())
	p.X.Label.Text = "Week"
	p.X.Tick.Marker = labelTicks(labels, maxAxisLabels)
	p.Y.Tick.Marker = labelTicks(ids, 0)
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(heatMap(g))

	w, h := r.tallSize(len(ids))
	return r.save(ctx, name, p, w, h)
}

// Popularity draws a horizontal bar of average weekly uses per identifier,
// most used at the top.
func (r *Renderer) Popularity(ctx context.Context, series domain.EquipmentWeeklySeries) (Result, error) {
	name := EquipmentChartName(series.Dimension, KindPopularity)
	popular := RankByPopularity(series)
	if len(popular) == 0 {
		return r.skip(ctx, name, "no identifiers"), nil
	}

	values := make(plotter.Values, len(popular))
	names := make([]string, len(popular))
	for i, pop := range popular {
		j := len(popular) - 1 - i
		values[j] = pop.Average
		names[j] = pop.ID
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return Result{}, err
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(0)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Average Weekly Uses by %s", series.Dimension.Title())
	p.X.Label.Text = "Average uses per week"
	p.Add(bars)
	p.NominalY(names...)

	w, h := r.tallSize(len(names))
	return r.save(ctx, name, p, w, h)
}
