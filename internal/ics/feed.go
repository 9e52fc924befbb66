// Package ics renders stored event templates as an iCalendar feed.
package ics

import (
	"context"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/hray3182/eventcal/internal/models"
	"github.com/hray3182/eventcal/internal/recurrence"
)

const (
	ProductID = "eventcal"

	localTimestampFormat = "20060102T150405"
)

var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/hray3182/eventcal"))

// Builder turns templates into one VEVENT each. Recurring templates carry an
// RRULE when one reproduces the expansion exactly, and explicit RDATEs
// otherwise.
type Builder struct {
	expander *recurrence.Expander
	name     string
	now      func() time.Time
}

func NewBuilder(expander *recurrence.Expander, name string) *Builder {
	if name == "" {
		name = "Events"
	}
	return &Builder{expander: expander, name: name, now: time.Now}
}

// UID returns the stable identifier of a template across feed renders.
func UID(id int64) string {
	return uuid.NewSHA1(uidNamespace, []byte(fmt.Sprintf("event-%d", id))).String() + "@" + ProductID
}

func (b *Builder) Build(templates []models.EventTemplate, categories []models.Category) (*ical.Calendar, error) {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	cal := ical.NewCalendarFor(ProductID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetName(b.name)
	cal.SetXWRCalName(b.name)

	stamp := b.now()
	for _, t := range templates {
		event := cal.AddEvent(UID(t.ID))
		event.SetDtStampTime(stamp)
		event.SetSummary(t.Title)
		if t.Description != "" {
			event.SetDescription(t.Description)
		}
		if t.Color != "" {
			event.SetColor(t.Color)
		}
		if t.CategoryID != nil {
			if name, ok := names[*t.CategoryID]; ok {
				event.AddCategory(name)
			}
		}

		setTime(event, ical.ComponentPropertyDtStart, t.Start)
		if end, ok := firstEnd(t); ok {
			setTime(event, ical.ComponentPropertyDtEnd, end)
		}

		if !t.IsRecurring() {
			continue
		}

		rule, ok, err := b.expander.RRule(t)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", t.ID, err)
		}
		if ok {
			event.AddRrule(rule)
			continue
		}

		first := true
		for occ := range b.expander.Expand(t) {
			if first {
				first = false
				continue
			}
			value, params := icalTime(occ.Start)
			event.AddRdate(value, params...)
		}
	}
	return cal, nil
}

// Source supplies the stored templates and categories of a feed.
type Source interface {
	Templates(ctx context.Context) ([]models.EventTemplate, error)
	Categories(ctx context.Context) ([]models.Category, error)
}

// RenderFrom loads everything from src and serializes the feed.
func (b *Builder) RenderFrom(ctx context.Context, src Source) (string, error) {
	templates, err := src.Templates(ctx)
	if err != nil {
		return "", err
	}
	categories, err := src.Categories(ctx)
	if err != nil {
		return "", err
	}
	return b.Render(templates, categories)
}

// Render serializes the feed.
func (b *Builder) Render(templates []models.EventTemplate, categories []models.Category) (string, error) {
	cal, err := b.Build(templates, categories)
	if err != nil {
		return "", err
	}
	return cal.Serialize(), nil
}

// firstEnd is the end of the first occurrence. A recurring end that would land
// before the start is dropped since DTEND may not precede DTSTART.
func firstEnd(t models.EventTemplate) (time.Time, bool) {
	if t.End == nil {
		return time.Time{}, false
	}
	end := *t.End
	if t.IsRecurring() {
		end = models.CombineDateTime(t.Start, end)
	}
	if end.Before(t.Start) {
		return time.Time{}, false
	}
	return end, true
}

func setTime(event *ical.VEvent, prop ical.ComponentProperty, t time.Time) {
	value, params := icalTime(t)
	event.SetProperty(prop, value, params...)
}

// icalTime formats t as a UTC timestamp or as local time with a TZID.
func icalTime(t time.Time) (string, []ical.PropertyParameter) {
	if t.Location() == time.UTC {
		return t.Format(localTimestampFormat) + "Z", nil
	}
	return t.Format(localTimestampFormat), []ical.PropertyParameter{ical.WithTZID(t.Location().String())}
}
