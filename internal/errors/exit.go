package errors

import (
	"context"
	"errors"
	"log/slog"
)

// Process exit codes returned by the pipeline commands
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitConfig   = 3
	ExitInput    = 4
	ExitStorage  = 5
	ExitCanceled = 130
)

// ExitCode maps an error to the exit status of a pipeline command
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ExitCanceled
	}

	switch TypeOf(err) {
	case ErrTypeUsage:
		return ExitUsage
	case ErrTypeConfig:
		return ExitConfig
	case ErrTypeInput, ErrTypeNotFound, ErrTypeParsing:
		return ExitInput
	case ErrTypeStorage, ErrTypeRender:
		return ExitStorage
	default:
		return ExitFailure
	}
}

// LogAttrs returns structured attributes describing err for slog
func LogAttrs(err error) []any {
	attrs := []any{slog.String("error", err.Error())}

	var appErr *AppError
	if errors.As(err, &appErr) {
		attrs = append(attrs, slog.String("error_type", string(appErr.Type)))
		for k, v := range appErr.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
	}
	return attrs
}
