package converter

import (
	"errors"
	"fmt"
)

// ErrMissingDateTime is wrapped by MalformedDateError when the order date or
// time is blank.
var ErrMissingDateTime = errors.New("order date or time is missing")

// ErrNumberOutOfRange is wrapped by MalformedNumberError when a number is too
// large or too precise to be an amount.
var ErrNumberOutOfRange = errors.New("number out of range")

// MalformedDateError reports an order date and time that do not combine into
// a valid timestamp.
type MalformedDateError struct {
	Date string
	Time string
	Err  error
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed order date %q time %q: %v", e.Date, e.Time, e.Err)
}

func (e *MalformedDateError) Unwrap() error { return e.Err }

// MalformedNumberError reports a decimal field that is not a number.
type MalformedNumberError struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedNumberError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("cannot convert %q to a number: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("column %q: cannot convert %q to a number: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedNumberError) Unwrap() error { return e.Err }

// MalformedInputError ties a date or number error to the order it came from.
// The order is skipped; the rest of the batch is still converted.
type MalformedInputError struct {
	OrderCode string
	Row       int
	Err       error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("order %q (row %d): %v", e.OrderCode, e.Row, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }
