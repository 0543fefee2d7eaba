package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAnalysisNotFound   = errors.New("analysis not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTemporary          = errors.New("temporary failure")
	ErrStreamIncomplete   = errors.New("stream ended before analysis completed")
	ErrReconnectExhausted = errors.New("failed to reconnect after multiple attempts")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
