// Package normalize turns loosely formatted values read off billing documents
// into canonical forms. Every parser fails closed: ok is false when the input
// cannot be read with confidence.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical date format.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01/02/06",
	"1/2/06",
	"01022006",
	"20060102",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
}

// Two-digit-year layouts. Go pivots these into 1969-2068; results later
// than today are moved back a century.
var shortYearLayouts = map[string]bool{
	"01/02/06": true,
	"1/2/06":   true,
}

var (
	amountNoise  = strings.NewReplacer("$", "", " ", "", "USD", "", "usd", "")
	decimalComma = regexp.MustCompile(`,[0-9]{1,2}$|\.[0-9]*,`) // "1.500,00", "12,50"
	spaces       = regexp.MustCompile(`\s+`)
)

// ParseAmount reads a currency amount such as "$1,500.00", "1500", "(25.00)"
// or "USD 12.5". Parenthesized amounts are negative. Decimal-comma amounts
// like "1.500,00" are rejected rather than misread.
func ParseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountNoise.Replace(s)
	if decimalComma.MatchString(s) || strings.Count(s, ".") > 1 {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// ParseDate reads a date in any of the layouts commonly printed on US billing
// forms and returns it as YYYY-MM-DD. A two-digit year resolves to the most
// recent matching year that is not in the future.
func ParseDate(raw string) (string, bool) {
	return parseDate(raw, time.Now())
}

func parseDate(raw string, now time.Time) (string, bool) {
	s := spaces.ReplaceAllString(strings.TrimSpace(raw), " ")
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if shortYearLayouts[layout] && t.After(now) {
			t = t.AddDate(-100, 0, 0)
		}
		return t.Format(DateLayout), true
	}
	return "", false
}

// DaysBetween returns the whole days from start to end, both canonical dates.
func DaysBetween(start, end string) (int, bool) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return 0, false
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return 0, false
	}
	return int(e.Sub(s).Hours() / 24), true
}

// Key folds a free-text value for equality comparison: trimmed, lower case,
// internal whitespace collapsed.
func Key(raw string) string {
	return strings.ToLower(spaces.ReplaceAllString(strings.TrimSpace(raw), " "))
}

// Token folds a categorical value for enumeration lookup: upper case with
// punctuation and whitespace removed, so "In-Patient" and "IN PATIENT" agree.
func Token(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
