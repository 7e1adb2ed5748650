package exporter

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"makertrends/pkg/contracts/domain"
)

// TimestampLayout is the timestamp format of cleaned_records.csv
const TimestampLayout = time.RFC3339

// formatFloat formats a float64 value with exactly 2 decimal places, rounding
// half away from zero. Negative zero prints as 0.00.
func formatFloat(f float64) string {
	f = math.Round(f*100) / 100
	if f == 0 || math.IsNaN(f) {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", f)
}

// formatOptionalFloat leaves the cell blank for a nil value
func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatRank leaves the cell blank for an unranked (zero) rank
func formatRank(rank int) string {
	if rank <= 0 {
		return ""
	}
	return strconv.Itoa(rank)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseWeek(s string) (domain.Week, error) {
	return domain.ParseWeek(s)
}
