package charts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"makertrends/internal/config"
	apperrors "makertrends/internal/errors"
	"makertrends/internal/files"
)

// Formats lists the image formats the renderer can write.
var Formats = []string{"png", "svg", "pdf"}

// maxAxisLabels caps the number of week labels drawn on a time axis.
const maxAxisLabels = 12

// Result describes one chart the renderer produced or skipped.
type Result struct {
	Name    string
	Path    string
	Skipped bool
	Reason  string
}

// Renderer draws charts into the image directory.
type Renderer struct {
	logger  *slog.Logger
	cfg     config.ChartsConfig
	paths   *config.Paths
	manager *files.Manager
}

// NewRenderer creates a renderer using the configured format and size.
func NewRenderer(paths *config.Paths, cfg config.ChartsConfig, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Format == "" {
		cfg.Format = "png"
	}
	if cfg.WidthIn <= 0 {
		cfg.WidthIn = 10
	}
	if cfg.HeightIn <= 0 {
		cfg.HeightIn = 6
	}
	if cfg.TopN < 1 {
		cfg.TopN = 10
	}
	return &Renderer{
		logger:  logger,
		cfg:     cfg,
		paths:   paths,
		manager: files.NewManager(paths),
	}
}

// FileName returns the file a chart called name is written to.
func (r *Renderer) FileName(name string) string {
	return name + "." + r.cfg.Format
}

// skip records that a chart had nothing to draw.
func (r *Renderer) skip(ctx context.Context, name, reason string) Result {
	r.logger.WarnContext(ctx, "Chart skipped",
		slog.String("chart", name),
		slog.String("reason", reason))
	return Result{Name: name, Skipped: true, Reason: reason}
}

// save renders p and writes it atomically.
func (r *Renderer) save(ctx context.Context, name string, p *plot.Plot, width, height vg.Length) (Result, error) {
	path := r.paths.GetImagePath(r.FileName(name))

	wt, err := p.WriterTo(width, height, r.cfg.Format)
	if err != nil {
		return Result{}, apperrors.NewRenderError(fmt.Sprintf("cannot render %s", name), err).
			WithContext("format", r.cfg.Format)
	}
	if err := r.manager.WriteAtomic(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	}); err != nil {
		return Result{}, apperrors.NewRenderError(fmt.Sprintf("cannot write %s", filepath.Base(path)), err).
			WithContext("path", path)
	}

	r.logger.InfoContext(ctx, "Wrote chart",
		slog.String("chart", name),
		slog.String("path", r.manager.RelativePath(path)))
	return Result{Name: name, Path: path}, nil
}

// size returns the configured canvas size.
func (r *Renderer) size() (vg.Length, vg.Length) {
	return vg.Length(r.cfg.WidthIn) * vg.Inch, vg.Length(r.cfg.HeightIn) * vg.Inch
}

// tallSize grows the canvas for charts with one row per identifier.
func (r *Renderer) tallSize(rows int) (vg.Length, vg.Length) {
	w, h := r.size()
	need := vg.Length(rows) * 0.3 * vg.Inch
	if need > h {
		h = need
	}
	return w, h
}

// labelTicks places labels at 0..len-1, thinned to at most limit entries.
func labelTicks(labels []string, limit int) plot.ConstantTicks {
	step := 1
	if limit > 0 && len(labels) > limit {
		step = (len(labels) + limit - 1) / limit
	}
	ticks := make(plot.ConstantTicks, 0, len(labels))
	for i, l := range labels {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = l
		}
		ticks = append(ticks, t)
	}
	return ticks
}
