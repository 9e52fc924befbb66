package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
)

var dateTimeLayouts = []string{
	DateTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

var errEmptyValue = errors.New("empty value")

// ParseError is returned when a stored or submitted date string cannot be read.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseDateTime reads a wall-clock date-time in loc.
//
// RFC 3339 values keep their wall clock and drop the offset: zone-less
// TIMESTAMP columns come back from the driver as UTC even though the
// stored values are calendar-local.
func ParseDateTime(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &ParseError{Field: field, Value: value, Err: errEmptyValue}
	}
	if loc == nil {
		loc = time.UTC
	}

	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return rebase(t, loc), nil
	}

	return time.Time{}, &ParseError{Field: field, Value: value, Err: lastErr}
}

// ParseDate reads a date-only value, or the date part of a date-time, at
// midnight in loc.
func ParseDate(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &ParseError{Field: field, Value: value, Err: errEmptyValue}
	}
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.ParseInLocation(DateLayout, value, loc); err == nil {
		return t, nil
	}

	t, err := ParseDateTime(field, value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// FormatDateTime renders t the way the widget and the store expect it.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOf truncates t to midnight of its own calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CombineDateTime takes the calendar day of date and the time of day of clock.
func CombineDateTime(date, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), date.Location())
}

func rebase(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
