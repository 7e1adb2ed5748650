// Package charts renders the usage and equipment visualizations with
// gonum.org/v1/plot.
//
// Every chart is written atomically to the image directory in the configured
// format (png, svg or pdf). A chart with nothing to draw is skipped: the
// renderer logs a warning and returns a Result with Skipped set instead of an
// error, and no file is written.
package charts
