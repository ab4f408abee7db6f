package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	minRecipientDigits = 6
	maxDuration        = 1000
	minTitleLen        = 3
	maxTitleLen        = 100
)

var (
	digitsRe  = regexp.MustCompile(`^\d+$`)
	maxAmount = decimal.NewFromInt(100000)
)

// ScheduleDraft holds the raw form fields for a new schedule before
// submission. Everything is kept as entered so validation can run on every
// edit as well as once more at submission time.
type ScheduleDraft struct {
	Provider     string // service_id of the chosen provider
	Recipient    string // phone / meter / smart card number
	Duration     string
	DurationUnit string
	Variation    string // variation_code of the chosen plan
	Amount       string
	Title        string
	Action       ActionKind
	Frequency    Frequency
}

// DraftFields is the canonical field order, used to pick the first error for
// display.
var DraftFields = []string{"provider", "recipient", "duration", "duration_unit", "variation", "amount", "title"}

// Validate checks every field and returns a field → message map; an empty map
// means the draft is valid. It is a pure function of the draft: no network
// calls, no state, safe to call on each keystroke.
func (d ScheduleDraft) Validate() map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(d.Provider) == "" {
		errs["provider"] = "Please select a service provider"
	}

	label := d.Action.RecipientLabel()
	recipient := strings.Join(strings.Fields(d.Recipient), "")
	switch {
	case recipient == "":
		errs["recipient"] = label + " is required"
	case !digitsRe.MatchString(recipient):
		errs["recipient"] = label + " must contain only digits"
	case len(recipient) < minRecipientDigits:
		errs["recipient"] = label + " is too short"
	}

	// ParseFloat accepts "NaN" without error, and NaN fails every comparison
	duration, err := strconv.ParseFloat(strings.TrimSpace(d.Duration), 64)
	switch {
	case strings.TrimSpace(d.Duration) == "":
		errs["duration"] = "Duration is required"
	case err != nil || math.IsNaN(duration):
		errs["duration"] = "Duration must be a number"
	case duration <= 0:
		errs["duration"] = "Duration must be greater than zero"
	case duration > maxDuration:
		errs["duration"] = "Duration must be at most 1000"
	}

	if !ValidIntervalUnit(d.DurationUnit) {
		errs["duration_unit"] = "Please select a duration unit"
	}

	// airtime and electricity take a free-form amount; everything else buys a
	// provider-defined plan
	if d.Action.FreeAmount() {
		amount := strings.TrimSpace(d.Amount)
		if amount == "" {
			errs["amount"] = "Amount is required"
		} else if dec, err := decimal.NewFromString(amount); err != nil {
			errs["amount"] = "Amount must be a number"
		} else if dec.LessThanOrEqual(decimal.Zero) {
			errs["amount"] = "Amount must be greater than zero"
		} else if dec.GreaterThan(maxAmount) {
			errs["amount"] = "Amount must be at most 100000"
		}
	} else if strings.TrimSpace(d.Variation) == "" {
		errs["variation"] = "Please select a plan"
	}

	title := strings.TrimSpace(d.Title)
	if n := len([]rune(title)); n < minTitleLen || n > maxTitleLen {
		errs["title"] = "Title must be between 3 and 100 characters"
	}

	return errs
}

// CleanRecipient returns the recipient with all whitespace stripped, the form
// submitted to the server.
func (d ScheduleDraft) CleanRecipient() string {
	return strings.Join(strings.Fields(d.Recipient), "")
}
