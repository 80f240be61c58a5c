package core

import (
	"regexp"
	"time"
)

// MonthLayout is the time layout of a budgeting month ("YYYY-MM").
const MonthLayout = "2006-01"

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonth reports whether s is a well formed "YYYY-MM" month.
func ValidMonth(s string) bool {
	return monthPattern.MatchString(s)
}

// CurrentMonth returns the UTC calendar month of now.
func CurrentMonth(now time.Time) string {
	return now.UTC().Format(MonthLayout)
}

// ResolveMonth returns month when it is valid, the current UTC month when it
// is empty, and ErrInvalidMonth otherwise.
func ResolveMonth(month string, now time.Time) (string, error) {
	if month == "" {
		return CurrentMonth(now), nil
	}
	if !ValidMonth(month) {
		return "", ErrInvalidMonth
	}
	return month, nil
}
