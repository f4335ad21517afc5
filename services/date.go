package services

import (
	"fmt"
	"law_consult_app/models"
	"strings"
	"time"
)

// ParseDate parses a date string in typical formats (YYYY-MM-DD)
// It enforces strict checks but centralizes the logic for future format additions
func ParseDate(dateStr string) (time.Time, error) {
	parsedTime, err := time.Parse(models.DateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}

	return parsedTime, nil
}

// NormalizeClock accepts "HH:MM" or "HH:MM:SS" and returns "HH:MM"
func NormalizeClock(value string) (string, error) {
	t, err := parseClock(value)
	if err != nil {
		return "", err
	}
	return t.Format(models.TimeLayout), nil
}

// NormalizeTime accepts "HH:MM" or "HH:MM:SS" and returns "HH:MM:SS"
func NormalizeTime(value string) (string, error) {
	t, err := parseClock(value)
	if err != nil {
		return "", err
	}
	return t.Format("15:04:05"), nil
}

func parseClock(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format: expected HH:MM")
}

// DateString formats a time as YYYY-MM-DD
func DateString(t time.Time) string {
	return t.Format(models.DateLayout)
}

// DatesInRange lists every calendar day in [start, end] as YYYY-MM-DD
func DatesInRange(start, end time.Time) []string {
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, DateString(d))
	}
	return dates
}

// today returns the calendar date of now in now's location, at UTC midnight for comparisons with parsed dates
func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
