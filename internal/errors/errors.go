// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidSide      = errors.New("invalid order side")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidPrice     = errors.New("price must be positive")
	ErrEmptySymbol      = errors.New("symbol cannot be empty")
	ErrInvalidCapital   = errors.New("initial capital must be positive")
	ErrInvalidFraction  = errors.New("notional fraction must be in (0, 1]")
	ErrNoProducers      = errors.New("no signal producers registered")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDataNotFound     = errors.New("data not found")
	ErrConnectionFailed = errors.New("connection failed")
	ErrQueueFull        = errors.New("tick queue full")
	ErrQueueClosed      = errors.New("tick queue closed")
)

// ValidationError represents a validation error. Ledger operations reject
// invalid input with a ValidationError before any state change. Err carries
// the sentinel cause so callers can match with errors.Is.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError wrapping err as its cause.
func NewValidationError(field string, value interface{}, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// ProducerError represents a fault raised by one signal producer while
// evaluating a tick. It is surfaced as a diagnostic, never propagated as a
// fatal engine error.
type ProducerError struct {
	Producer string
	Symbol   string
	Err      error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("producer error [%s] %s: %v", e.Producer, e.Symbol, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}

// NewProducerError creates a new ProducerError.
func NewProducerError(producer, symbol string, err error) *ProducerError {
	return &ProducerError{
		Producer: producer,
		Symbol:   symbol,
		Err:      err,
	}
}

// FeedError represents an error from a tick source.
type FeedError struct {
	Source  string
	Symbol  string
	Message string
	Err     error
}

func (e *FeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed error [%s] %s: %s: %v", e.Source, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("feed error [%s] %s: %s", e.Source, e.Symbol, e.Message)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a new FeedError.
func NewFeedError(source, symbol, message string, err error) *FeedError {
	return &FeedError{
		Source:  source,
		Symbol:  symbol,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
