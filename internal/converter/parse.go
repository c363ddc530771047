package converter

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateTimeLayouts are tried in order for "<date>T<time>". Fractional seconds
// are accepted by time.Parse without being part of the layout.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// CombineDateTime joins an ISO date ("2025-03-23") and time ("12:36:11") into
// a UTC timestamp.
func CombineDateTime(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, &MalformedDateError{Date: date, Time: clock, Err: ErrMissingDateTime}
	}

	combined := date + "T" + clock
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.ParseInLocation(layout, combined, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, &MalformedDateError{Date: date, Time: clock, Err: lastErr}
}

// maxDecimalExponent bounds the power of ten accepted in a number. Amounts in
// an order export never come near it.
const maxDecimalExponent = 64

// ParseDecimal parses a number written with a decimal comma ("12,50").
// A decimal point is accepted too. The empty string is 0. Values that do not
// fit a finite float64 fail with ErrNumberOutOfRange.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return 0, &MalformedNumberError{Value: s, Err: err}
	}

	if exp := d.Exponent(); exp > maxDecimalExponent || exp < -maxDecimalExponent {
		return 0, &MalformedNumberError{Value: s, Err: ErrNumberOutOfRange}
	}

	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, &MalformedNumberError{Value: s, Err: ErrNumberOutOfRange}
	}
	return f, nil
}
