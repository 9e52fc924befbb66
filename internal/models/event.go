package models

import (
	"strings"
	"time"
)

// Recurrence is the repeat rule of an event template.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// ParseRecurrence maps user or stored input onto a Recurrence.
// Anything that is not one of the four known values becomes RecurrenceNone.
func ParseRecurrence(s string) Recurrence {
	switch r := Recurrence(strings.ToLower(strings.TrimSpace(s))); r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return r
	default:
		return RecurrenceNone
	}
}

// IsRecurring returns true for every rule except none
func (r Recurrence) IsRecurring() bool {
	return r == RecurrenceDaily || r == RecurrenceWeekly || r == RecurrenceMonthly
}

type EventTemplate struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end"`
	Description     string     `json:"description"`
	Color           string     `json:"color"`
	Recurrence      Recurrence `json:"recurrence"`
	RecurrenceEnd   *time.Time `json:"recurrence_end"` // date only, midnight in the calendar location
	CategoryID      *int64     `json:"category_id"`
	LinkedContentID *int64     `json:"linked_content_id"`
}

// IsRecurring returns true if this template expands into more than one occurrence
func (e *EventTemplate) IsRecurring() bool {
	return e.Recurrence.IsRecurring()
}

// EventInput is the already-validated field set written by the store.
type EventInput struct {
	Title           string
	Start           time.Time
	End             *time.Time
	Description     string
	Color           string
	Recurrence      Recurrence
	RecurrenceEnd   *time.Time
	CategoryID      *int64
	LinkedContentID *int64
}

// AdminEvent is a template joined with its category name for the admin listing.
type AdminEvent struct {
	EventTemplate
	CategoryName string `json:"category_name"`
	Schedule     string `json:"schedule"`
}

// Occurrence is one concrete calendar instance of a template. Never persisted.
type Occurrence struct {
	TemplateID  int64
	Title       string
	Description string
	Color       string
	Start       time.Time
	End         *time.Time
	Recurring   bool
	URL         string
	Category    *Category
}
