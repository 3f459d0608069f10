package service

import (
	"strings"
	"time"
)

const createDateLayout = "2006-01-02T15:04:05"

// referenceNow returns the current wall clock in the reference timezone
// all comparisons and display strings use (UTC+8).
func referenceNow() time.Time {
	return time.Now().UTC().Add(8 * time.Hour)
}

// parseCreateDate converts a Pixiv create_date string to the reference
// timezone. The offset suffix is dropped and a fixed one-hour correction
// applied; the existing history was produced by this exact arithmetic, so
// it must not be changed or stored timestamps stop being comparable.
func parseCreateDate(raw string) (time.Time, error) {
	base, _, _ := strings.Cut(raw, "+")
	t, err := time.Parse(createDateLayout, base)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(-time.Hour), nil
}

// withinWindow reports whether publish is at or after threshold.
func withinWindow(publish, threshold time.Time) bool {
	return !publish.Before(threshold)
}
