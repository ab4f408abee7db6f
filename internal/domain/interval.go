package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Interval unit sizes in seconds. A month is a fixed 30-day approximation;
// there is no calendar-aware month arithmetic anywhere in the codebase.
const (
	secondsPerMinute int64 = 60
	secondsPerHour   int64 = 3600
	secondsPerDay    int64 = 86400
	secondsPerWeek   int64 = 604800
	secondsPerMonth  int64 = 2592000
)

var ErrInvalidDuration = errors.New("invalid duration")

// IntervalUnits lists the recognized duration units, smallest first.
var IntervalUnits = []string{"Minutes", "Hours", "Days", "Weeks", "Months"}

var unitSeconds = map[string]int64{
	"Minutes": secondsPerMinute,
	"Hours":   secondsPerHour,
	"Days":    secondsPerDay,
	"Weeks":   secondsPerWeek,
	"Months":  secondsPerMonth,
}

// ValidIntervalUnit reports whether unit is one of the recognized units.
func ValidIntervalUnit(unit string) bool {
	_, ok := unitSeconds[unit]
	return ok
}

// ToSeconds converts an (amount, unit) pair into the canonical interval in
// seconds: round(amount * unit size). Amount must be a positive finite number
// and unit one of IntervalUnits.
func ToSeconds(amount float64, unit string) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be a positive number", ErrInvalidDuration)
	}
	scale, ok := unitSeconds[unit]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidDuration, unit)
	}
	return int64(math.Round(amount * float64(scale))), nil
}

// FormatSeconds renders a canonical interval as a (number, unit) pair for
// display, e.g. (65, "DAYS"). It picks the largest unit that fits at least
// once and rounds to the nearest whole count, so the transform is lossy:
// it is a display format, not a storage format.
func FormatSeconds(seconds int64) (string, string) {
	if seconds <= 0 {
		return "0", "SECONDS"
	}
	steps := []struct {
		scale int64
		label string
	}{
		{secondsPerMonth, "MONTHS"},
		{secondsPerWeek, "WEEKS"},
		{secondsPerDay, "DAYS"},
		{secondsPerHour, "HOURS"},
		{secondsPerMinute, "MINUTES"},
	}
	for _, s := range steps {
		if seconds >= s.scale {
			n := int64(math.Round(float64(seconds) / float64(s.scale)))
			return strconv.FormatInt(n, 10), s.label
		}
	}
	return strconv.FormatInt(seconds, 10), "SECONDS"
}

// IntervalLabel is FormatSeconds joined for display, e.g. "65 DAYS".
func IntervalLabel(seconds int64) string {
	n, unit := FormatSeconds(seconds)
	return n + " " + unit
}
