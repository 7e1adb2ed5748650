package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewUsageError("unknown -format gif"),
			expected: "[USAGE] unknown -format gif",
		},
		{
			name:     "with cause",
			err:      NewStorageError("failed to write weekly_usage.csv", fmt.Errorf("disk full")),
			expected: "[STORAGE] failed to write weekly_usage.csv: disk full",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("cleaned_records.csv"),
			expected: "[NOT_FOUND] cleaned_records.csv not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewStorageError("write failed", cause)

	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &appErr)
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewParsingError("bad row", nil).
		WithContext("file", "2019.csv").
		WithContext("line", 12)

	assert.Equal(t, "2019.csv", err.Context["file"])
	assert.Equal(t, 12, err.Context["line"])

	bare := &AppError{Type: ErrTypeInput}
	bare.WithContext("k", "v")
	assert.Equal(t, "v", bare.Context["k"])
}

func TestTypeOfAndIsType(t *testing.T) {
	inner := NewParsingError("bad header", nil)
	outer := NewInputError("cannot load raw data", inner)

	assert.Equal(t, ErrTypeInput, TypeOf(outer))
	assert.True(t, IsType(outer, ErrTypeParsing))
	assert.True(t, IsType(fmt.Errorf("ctx: %w", outer), ErrTypeInput))
	assert.False(t, IsType(outer, ErrTypeStorage))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.False(t, IsType(nil, ErrTypeInput))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"usage", NewUsageError("unknown -format gif"), ExitUsage},
		{"config", NewConfigError("bad yaml", nil), ExitConfig},
		{"input", NewInputError("no files", nil), ExitInput},
		{"not found", NewNotFoundError("cleaned_records.csv"), ExitInput},
		{"parsing", NewParsingError("bad header", nil), ExitInput},
		{"storage", NewStorageError("disk full", nil), ExitStorage},
		{"render", NewRenderError("png", nil), ExitStorage},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), ExitCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestLogAttrs(t *testing.T) {
	err := NewInputError("empty", nil).WithContext("path", "/tmp/x.csv")
	attrs := LogAttrs(err)

	require.Len(t, attrs, 3)
	assert.Equal(t, slog.String("error", err.Error()), attrs[0])
	assert.Equal(t, slog.String("error_type", "INPUT"), attrs[1])
	assert.Equal(t, slog.Any("path", "/tmp/x.csv"), attrs[2])

	assert.Len(t, LogAttrs(errors.New("plain")), 1)
}
