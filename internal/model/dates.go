package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of planned dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date as a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseDateLoose also accepts the French DD/MM/YYYY form found in spreadsheets.
func ParseDateLoose(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("02/01/2006", s, time.UTC); err == nil {
		return t, nil
	}
	return ParseDate(s)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// AddDays shifts a YYYY-MM-DD date by n calendar days.
func AddDays(s string, n int) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, n)), nil
}

// DaysBetween returns b-a in whole days. Negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// CheckRange validates both dates and that start does not come after end.
func CheckRange(start, end string) error {
	s, err := ParseDate(start)
	if err != nil {
		return err
	}
	e, err := ParseDate(end)
	if err != nil {
		return err
	}
	if e.Before(s) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange, start, end)
	}
	return nil
}
