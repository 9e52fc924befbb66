package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/eventcal/internal/models"
	"github.com/teambition/rrule-go"
)

var frequencies = map[models.Recurrence]rrule.Frequency{
	models.RecurrenceDaily:   rrule.DAILY,
	models.RecurrenceWeekly:  rrule.WEEKLY,
	models.RecurrenceMonthly: rrule.MONTHLY,
}

// RRule renders a recurring template as an RFC 5545 RRULE value (without the
// "RRULE:" prefix). ok is false when no rule reproduces Expand exactly: for
// non-recurring templates, and for monthly templates anchored after the 28th,
// where RFC 5545 skips short months but Advance rolls over into the next one.
func (e *Expander) RRule(t models.EventTemplate) (rule string, ok bool, err error) {
	freq, known := frequencies[t.Recurrence]
	if !known {
		return "", false, nil
	}
	if t.Recurrence == models.RecurrenceMonthly && t.Start.Day() > 28 {
		return "", false, nil
	}

	bound := e.Bound(t)
	opt := rrule.ROption{
		Freq:    freq,
		Dtstart: t.Start,
		Until:   time.Date(bound.Year(), bound.Month(), bound.Day(), 23, 59, 59, 0, t.Start.Location()),
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return "", false, fmt.Errorf("failed to build RRULE: %w", err)
	}
	return r.OrigOptions.RRuleString(), true, nil
}

// ParseRRule parses an RFC 5545 RRULE string anchored at dtstart.
func ParseRRule(ruleStr string, dtstart time.Time) (*rrule.RRule, error) {
	ruleStr = strings.TrimPrefix(ruleStr, "RRULE:")

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE: %w", err)
	}
	opt.Dtstart = dtstart
	return rrule.NewRRule(*opt)
}

// Describe returns a short English label for the admin listing.
func (e *Expander) Describe(t models.EventTemplate) string {
	var unit string
	switch t.Recurrence {
	case models.RecurrenceDaily:
		unit = "day"
	case models.RecurrenceWeekly:
		unit = "week"
	case models.RecurrenceMonthly:
		unit = "month"
	default:
		return "One-time"
	}
	return fmt.Sprintf("Every %s until %s", unit, models.FormatDate(e.Bound(t)))
}
