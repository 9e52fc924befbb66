package calendar

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hray3182/eventcal/internal/models"
)

// Form is the raw field set submitted by the admin UI.
type Form struct {
	Title           string
	Start           string
	End             string
	Description     string
	Color           string
	Recurrence      string
	RecurrenceEnd   string
	CategoryID      string
	LinkedContentID string
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Normalize validates f and coerces it into store input. Dates accept the
// browser's datetime-local format as well as the stored layouts.
func (f Form) Normalize(loc *time.Location) (models.EventInput, error) {
	input := models.EventInput{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Color:       SanitizeColor(f.Color),
		Recurrence:  models.ParseRecurrence(f.Recurrence),
	}

	if input.Title == "" {
		return models.EventInput{}, &ValidationError{Field: "title", Message: "title is required"}
	}

	if strings.TrimSpace(f.Start) == "" {
		return models.EventInput{}, &ValidationError{Field: "start_date", Message: "start date is required"}
	}
	start, err := models.ParseDateTime("start_date", f.Start, loc)
	if err != nil {
		return models.EventInput{}, &ValidationError{Field: "start_date", Message: "invalid start date"}
	}
	input.Start = start

	if strings.TrimSpace(f.End) != "" {
		end, err := models.ParseDateTime("end_date", f.End, loc)
		if err != nil {
			return models.EventInput{}, &ValidationError{Field: "end_date", Message: "invalid end date"}
		}
		input.End = &end
	}

	if strings.TrimSpace(f.RecurrenceEnd) != "" {
		until, err := models.ParseDate("recurrence_end", f.RecurrenceEnd, loc)
		if err != nil {
			return models.EventInput{}, &ValidationError{Field: "recurrence_end", Message: "invalid recurrence end date"}
		}
		input.RecurrenceEnd = &until
	}

	input.CategoryID = optionalID(f.CategoryID)
	input.LinkedContentID = optionalID(f.LinkedContentID)
	return input, nil
}

// SanitizeColor returns c when it is a #rgb or #rrggbb hex color, else "".
func SanitizeColor(c string) string {
	c = strings.TrimSpace(c)
	if hexColor.MatchString(c) {
		return c
	}
	return ""
}

// optionalID reads a weak reference; empty, zero, negative or non-numeric means none.
func optionalID(v string) *int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
