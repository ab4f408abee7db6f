package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSeconds(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		unit   string
		want   int64
	}{
		{"one minute", 1, "Minutes", 60},
		{"one hour", 1, "Hours", 3600},
		{"one day", 1, "Days", 86400},
		{"one week", 1, "Weeks", 604800},
		{"one month is thirty days", 1, "Months", 2592000},
		{"two weeks", 2, "Weeks", 1209600},
		{"fractional hours round", 1.5, "Hours", 5400},
		{"fractional minutes round to nearest", 0.5, "Minutes", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSeconds(tt.amount, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToSeconds_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		unit   string
	}{
		{"zero amount", 0, "Days"},
		{"negative amount", -2, "Days"},
		{"nan amount", math.NaN(), "Days"},
		{"infinite amount", math.Inf(1), "Days"},
		{"unknown unit", 1, "Fortnights"},
		{"lowercase unit", 1, "days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToSeconds(tt.amount, tt.unit)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDuration)
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		wantN    string
		wantUnit string
	}{
		{"exact day", 86400, "1", "DAYS"},
		{"day and a bit rounds down", 90000, "1", "DAYS"},
		{"two months", 5184000, "2", "MONTHS"},
		{"ninety seconds rounds up", 90, "2", "MINUTES"},
		{"exact week", 604800, "1", "WEEKS"},
		{"sub-minute stays in seconds", 45, "45", "SECONDS"},
		{"zero", 0, "0", "SECONDS"},
		{"negative", -5, "0", "SECONDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, unit := FormatSeconds(tt.seconds)
			assert.Equal(t, tt.wantN, n)
			assert.Equal(t, tt.wantUnit, unit)
		})
	}
}

// The display transform is lossy on purpose: encoding what it shows must not
// be assumed to give back the original interval.
func TestFormatSecondsIsLossy(t *testing.T) {
	n, unit := FormatSeconds(90000)
	require.Equal(t, "1", n)
	require.Equal(t, "DAYS", unit)

	back, err := ToSeconds(1, "Days")
	require.NoError(t, err)
	assert.NotEqual(t, int64(90000), back)
}

func TestIntervalLabel(t *testing.T) {
	assert.Equal(t, "2 WEEKS", IntervalLabel(1209600))
	assert.Equal(t, "0 SECONDS", IntervalLabel(0))
}

func TestValidIntervalUnit(t *testing.T) {
	for _, unit := range IntervalUnits {
		assert.True(t, ValidIntervalUnit(unit), unit)
	}
	assert.False(t, ValidIntervalUnit("Seconds"))
	assert.False(t, ValidIntervalUnit(""))
}
