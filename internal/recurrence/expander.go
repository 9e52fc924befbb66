// Package recurrence turns stored event templates into concrete occurrences.
package recurrence

import (
	"iter"
	"strings"
	"time"

	"github.com/hray3182/eventcal/internal/models"
)

// Clock supplies the current time for the "now" bound policy.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

var SystemClock Clock = ClockFunc(time.Now)

// BoundPolicy decides the implicit upper bound of a template with no recurrence end.
type BoundPolicy string

const (
	// BoundFromStart ends the series one calendar year after its first occurrence.
	BoundFromStart BoundPolicy = "start"
	// BoundFromNow ends the series one calendar year after the current date.
	BoundFromNow BoundPolicy = "now"
)

func ParseBoundPolicy(s string) BoundPolicy {
	if BoundPolicy(strings.ToLower(strings.TrimSpace(s))) == BoundFromNow {
		return BoundFromNow
	}
	return BoundFromStart
}

type Expander struct {
	clock  Clock
	policy BoundPolicy
}

func NewExpander(clock Clock, policy BoundPolicy) *Expander {
	if clock == nil {
		clock = SystemClock
	}
	if policy != BoundFromNow {
		policy = BoundFromStart
	}
	return &Expander{clock: clock, policy: policy}
}

// Window limits expansion to occurrences touching [From, To], compared by date.
type Window struct {
	From time.Time
	To   time.Time
}

type Option func(*expandOptions)

type expandOptions struct {
	window *Window
}

func WithWindow(from, to time.Time) Option {
	return func(o *expandOptions) {
		o.window = &Window{From: from, To: to}
	}
}

// Bound returns the last calendar day (inclusive) on which a recurring
// template may still produce an occurrence.
func (e *Expander) Bound(t models.EventTemplate) time.Time {
	if t.RecurrenceEnd != nil {
		return models.DateOf(*t.RecurrenceEnd)
	}
	anchor := t.Start
	if e.policy == BoundFromNow {
		anchor = e.clock.Now().In(t.Start.Location())
	}
	return models.DateOf(anchor.AddDate(1, 0, 0))
}

// Expand yields the occurrences of t in order. The sequence is computed from
// the template alone, so ranging over it again starts from the beginning.
//
// Every recurring occurrence ends on its own start date at the template end's
// time of day: an end clock earlier than the start clock is not moved to the
// next day.
func (e *Expander) Expand(t models.EventTemplate, opts ...Option) iter.Seq[models.Occurrence] {
	var o expandOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(models.Occurrence) bool) {
		if !t.IsRecurring() {
			occ := newOccurrence(t, t.Start, t.End, false)
			if o.window == nil || o.window.overlaps(occ) {
				yield(occ)
			}
			return
		}

		bound := dayKey(e.Bound(t))
		for cursor := t.Start; dayKey(cursor) <= bound; cursor = Advance(t.Recurrence, cursor) {
			var end *time.Time
			if t.End != nil {
				spliced := models.CombineDateTime(cursor, *t.End)
				end = &spliced
			}
			occ := newOccurrence(t, cursor, end, true)

			if o.window != nil {
				if dayKey(cursor) > dayKey(o.window.To) {
					return
				}
				if !o.window.overlaps(occ) {
					continue
				}
			}
			if !yield(occ) {
				return
			}
		}
	}
}

// Advance moves a cursor one recurrence step forward. Monthly steps use
// calendar normalization: Jan 31 + 1 month is Mar 3 (Mar 2 in leap years) and
// the series continues from there.
func Advance(r models.Recurrence, t time.Time) time.Time {
	switch r {
	case models.RecurrenceDaily:
		return t.AddDate(0, 0, 1)
	case models.RecurrenceWeekly:
		return t.AddDate(0, 0, 7)
	case models.RecurrenceMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t
	}
}

func newOccurrence(t models.EventTemplate, start time.Time, end *time.Time, recurring bool) models.Occurrence {
	return models.Occurrence{
		TemplateID:  t.ID,
		Title:       t.Title,
		Description: t.Description,
		Color:       t.Color,
		Start:       start,
		End:         end,
		Recurring:   recurring,
	}
}

func (w *Window) overlaps(occ models.Occurrence) bool {
	last := dayKey(occ.Start)
	if occ.End != nil && dayKey(*occ.End) > last {
		last = dayKey(*occ.End)
	}
	return last >= dayKey(w.From) && dayKey(occ.Start) <= dayKey(w.To)
}

// dayKey orders wall-clock calendar days independent of location.
func dayKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
