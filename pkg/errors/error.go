// Package errors carries typed error codes through the graph, engine and market data layers.
//
// Codes are grouped in ranges, and each range maps to a Category:
//   - 1-99 general
//   - 100-199 spec: malformed conditions, actions or documents, rejected before evaluation
//   - 200-299 data: indicator lookups and price series that cannot serve a timestamp
//   - 300-399 config: unsupported operators, indicator names and engine configuration
//   - 400-499 evaluation: failures of a single rebalance call
//   - 700-799 market data: downloading and writing bars
//
// Callers branch on the category rather than the message:
//
//	if errors.IsDataError(result.Err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// coder is implemented by every error type of this package.
type coder interface {
	error
	ErrorCode() ErrorCode
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func newError(code ErrorCode, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func New(code ErrorCode, message string) *Error {
	return newError(code, nil, message)
}

func Newf(code ErrorCode, format string, args ...any) *Error {
	return newError(code, nil, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to cause. The cause stays reachable through errors.Is and errors.As.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return newError(code, cause, message)
}

func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return newError(code, cause, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}

	return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) ErrorCode() ErrorCode {
	return e.Code
}

// Is and As forward to the standard library so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the outermost coded error in err's chain, or ErrCodeUnknown.
func GetCode(err error) ErrorCode {
	var c coder
	if !errors.As(err, &c) {
		return ErrCodeUnknown
	}

	return c.ErrorCode()
}

func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// CategoryOf returns CategoryNone for a nil error and CategoryGeneral for uncoded errors.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNone
	}

	return GetCode(err).Category()
}

func IsSpecError(err error) bool {
	return CategoryOf(err) == CategorySpec
}

func IsDataError(err error) bool {
	return CategoryOf(err) == CategoryData
}

func IsConfigError(err error) bool {
	return CategoryOf(err) == CategoryConfig
}

// InsufficientDataError reports a series shorter than an indicator window requires.
// It always carries ErrCodeInsufficientData.
type InsufficientDataError struct {
	Required int
	Actual   int

	// Symbol may be empty when the series has no ticker context.
	Symbol  string
	Message string
}

func NewInsufficientDataError(required, actual int, symbol, message string) *InsufficientDataError {
	return &InsufficientDataError{Required: required, Actual: actual, Symbol: symbol, Message: message}
}

func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return NewInsufficientDataError(required, actual, symbol, fmt.Sprintf(format, args...))
}

// Error returns Message, or a summary of the counts when Message is empty.
func (e *InsufficientDataError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("insufficient data for %q: required %d, got %d", e.Symbol, e.Required, e.Actual)
}

func (e *InsufficientDataError) ErrorCode() ErrorCode {
	return ErrCodeInsufficientData
}

func IsInsufficientDataError(err error) bool {
	var insufficient *InsufficientDataError

	return errors.As(err, &insufficient)
}
