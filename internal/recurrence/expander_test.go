package recurrence

import (
	"slices"
	"testing"
	"time"

	"github.com/hray3182/eventcal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func starts(occs []models.Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, models.FormatDateTime(o.Start))
	}
	return out
}

func TestExpandWeeklyUntilInclusive(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)
	tmpl := models.EventTemplate{
		ID:            7,
		Title:         "Review",
		Start:         at(2024, 1, 1, 10, 0),
		End:           ptr(at(2024, 1, 1, 12, 0)),
		Color:         "#3788d8",
		Recurrence:    models.RecurrenceWeekly,
		RecurrenceEnd: ptr(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
	}

	occs := slices.Collect(e.Expand(tmpl))
	require.Len(t, occs, 3)
	assert.Equal(t, []string{
		"2024-01-01 10:00:00",
		"2024-01-08 10:00:00",
		"2024-01-15 10:00:00",
	}, starts(occs))

	for _, o := range occs {
		assert.Equal(t, int64(7), o.TemplateID)
		assert.Equal(t, "Review", o.Title)
		assert.Equal(t, "#3788d8", o.Color)
		assert.True(t, o.Recurring)
		require.NotNil(t, o.End)
		assert.Equal(t, models.FormatDate(o.Start), models.FormatDate(*o.End))
		assert.Equal(t, "12:00:00", o.End.Format("15:04:05"))
	}
}

func TestExpandNonRecurringKeepsTemplate(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)
	end := at(2024, 3, 3, 18, 0)
	tmpl := models.EventTemplate{
		ID:         1,
		Title:      "Conference",
		Start:      at(2024, 3, 1, 9, 0),
		End:        &end,
		Recurrence: models.RecurrenceNone,
	}

	occs := slices.Collect(e.Expand(tmpl))
	require.Len(t, occs, 1)
	assert.False(t, occs[0].Recurring)
	assert.True(t, tmpl.Start.Equal(occs[0].Start))
	require.NotNil(t, occs[0].End)
	assert.True(t, end.Equal(*occs[0].End))
}

func TestExpandWithoutEndLeavesEndEmpty(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)
	tmpl := models.EventTemplate{
		Start:         at(2024, 1, 1, 9, 0),
		Recurrence:    models.RecurrenceDaily,
		RecurrenceEnd: ptr(at(2024, 1, 2, 0, 0)),
	}

	occs := slices.Collect(e.Expand(tmpl))
	require.Len(t, occs, 2)
	for _, o := range occs {
		assert.Nil(t, o.End)
	}
}

func TestExpandDefaultBoundIsOneYearFromStart(t *testing.T) {
	e := NewExpander(ClockFunc(func() time.Time { return at(2030, 1, 1, 0, 0) }), BoundFromStart)

	daily := models.EventTemplate{Start: at(2024, 1, 1, 9, 0), Recurrence: models.RecurrenceDaily}
	occs := slices.Collect(e.Expand(daily))
	// 2024 is a leap year; 2025-01-01 itself is included.
	require.Len(t, occs, 367)
	assert.Equal(t, "2025-01-01 09:00:00", models.FormatDateTime(occs[len(occs)-1].Start))

	weekly := models.EventTemplate{Start: at(2024, 1, 1, 9, 0), Recurrence: models.RecurrenceWeekly}
	occs = slices.Collect(e.Expand(weekly))
	require.Len(t, occs, 53)
	assert.Equal(t, "2024-12-30 09:00:00", models.FormatDateTime(occs[len(occs)-1].Start))

	monthly := models.EventTemplate{Start: at(2024, 1, 15, 9, 0), Recurrence: models.RecurrenceMonthly}
	occs = slices.Collect(e.Expand(monthly))
	require.Len(t, occs, 13)
}

func TestExpandBoundFromNow(t *testing.T) {
	now := at(2024, 6, 10, 12, 0)
	e := NewExpander(ClockFunc(func() time.Time { return now }), BoundFromNow)

	tmpl := models.EventTemplate{Start: at(2024, 1, 1, 9, 0), Recurrence: models.RecurrenceMonthly}
	assert.Equal(t, "2025-06-10", models.FormatDate(e.Bound(tmpl)))

	occs := slices.Collect(e.Expand(tmpl))
	// Jan 2024 through Jun 2025.
	require.Len(t, occs, 18)

	tmpl.RecurrenceEnd = ptr(at(2024, 3, 1, 0, 0))
	assert.Len(t, slices.Collect(e.Expand(tmpl)), 3)
}

func TestExpandMonthlyRollsOverShortMonths(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)

	tmpl := models.EventTemplate{
		Start:         at(2023, 1, 31, 8, 0),
		Recurrence:    models.RecurrenceMonthly,
		RecurrenceEnd: ptr(at(2023, 5, 10, 0, 0)),
	}
	assert.Equal(t, []string{
		"2023-01-31 08:00:00",
		"2023-03-03 08:00:00",
		"2023-04-03 08:00:00",
		"2023-05-03 08:00:00",
	}, starts(slices.Collect(e.Expand(tmpl))))

	tmpl.Start = at(2024, 1, 31, 8, 0)
	tmpl.RecurrenceEnd = ptr(at(2024, 3, 31, 0, 0))
	assert.Equal(t, []string{
		"2024-01-31 08:00:00",
		"2024-03-02 08:00:00",
	}, starts(slices.Collect(e.Expand(tmpl))))
}

func TestExpandStartAfterRecurrenceEndIsEmpty(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)
	tmpl := models.EventTemplate{
		Start:         at(2024, 2, 1, 9, 0),
		Recurrence:    models.RecurrenceWeekly,
		RecurrenceEnd: ptr(at(2024, 1, 1, 0, 0)),
	}
	assert.Empty(t, slices.Collect(e.Expand(tmpl)))
}

func TestExpandBoundComparesDatesOnly(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)
	tmpl := models.EventTemplate{
		Start:         at(2024, 1, 1, 23, 30),
		Recurrence:    models.RecurrenceDaily,
		RecurrenceEnd: ptr(at(2024, 1, 3, 0, 0)),
	}
	occs := slices.Collect(e.Expand(tmpl))
	require.Len(t, occs, 3)
	assert.Equal(t, "2024-01-03 23:30:00", models.FormatDateTime(occs[2].Start))
}

func TestExpandCrossMidnightEndStaysOnStartDate(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)
	tmpl := models.EventTemplate{
		Start:         at(2024, 1, 1, 22, 0),
		End:           ptr(at(2024, 1, 2, 1, 0)),
		Recurrence:    models.RecurrenceDaily,
		RecurrenceEnd: ptr(at(2024, 1, 2, 0, 0)),
	}
	occs := slices.Collect(e.Expand(tmpl))
	require.Len(t, occs, 2)
	assert.Equal(t, "2024-01-02 01:00:00", models.FormatDateTime(*occs[1].End))
	assert.Equal(t, "2024-01-02 22:00:00", models.FormatDateTime(occs[1].Start))
}

func TestExpandIsRestartable(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)
	seq := e.Expand(models.EventTemplate{
		Start:         at(2024, 1, 1, 9, 0),
		Recurrence:    models.RecurrenceDaily,
		RecurrenceEnd: ptr(at(2024, 1, 10, 0, 0)),
	})

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, starts(first), starts(second))
	assert.Len(t, first, 10)

	var taken int
	for range seq {
		taken++
		if taken == 2 {
			break
		}
	}
	assert.Equal(t, 2, taken)
}

func TestExpandStartsStrictlyIncrease(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)
	for _, r := range []models.Recurrence{models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly} {
		occs := slices.Collect(e.Expand(models.EventTemplate{Start: at(2024, 1, 31, 9, 0), Recurrence: r}))
		require.NotEmpty(t, occs, r)
		for i := 1; i < len(occs); i++ {
			assert.True(t, occs[i].Start.After(occs[i-1].Start), "%s step %d", r, i)
		}
	}
}

func TestExpandWithWindow(t *testing.T) {
	e := NewExpander(nil, BoundFromStart)
	daily := models.EventTemplate{
		Start:         at(2024, 1, 1, 9, 0),
		Recurrence:    models.RecurrenceDaily,
		RecurrenceEnd: ptr(at(2024, 12, 31, 0, 0)),
	}

	occs := slices.Collect(e.Expand(daily, WithWindow(at(2024, 3, 1, 0, 0), at(2024, 3, 3, 0, 0))))
	assert.Equal(t, []string{
		"2024-03-01 09:00:00",
		"2024-03-02 09:00:00",
		"2024-03-03 09:00:00",
	}, starts(occs))

	single := models.EventTemplate{
		Start:      at(2024, 2, 27, 9, 0),
		End:        ptr(at(2024, 3, 1, 9, 0)),
		Recurrence: models.RecurrenceNone,
	}
	assert.Len(t, slices.Collect(e.Expand(single, WithWindow(at(2024, 3, 1, 0, 0), at(2024, 3, 31, 0, 0)))), 1)
	assert.Empty(t, slices.Collect(e.Expand(single, WithWindow(at(2024, 4, 1, 0, 0), at(2024, 4, 30, 0, 0)))))
}

func TestAdvance(t *testing.T) {
	base := at(2024, 1, 31, 9, 0)
	assert.Equal(t, at(2024, 2, 1, 9, 0), Advance(models.RecurrenceDaily, base))
	assert.Equal(t, at(2024, 2, 7, 9, 0), Advance(models.RecurrenceWeekly, base))
	assert.Equal(t, at(2024, 3, 2, 9, 0), Advance(models.RecurrenceMonthly, base))
	assert.Equal(t, base, Advance(models.RecurrenceNone, base))
}

func TestParseBoundPolicy(t *testing.T) {
	assert.Equal(t, BoundFromNow, ParseBoundPolicy(" NOW "))
	assert.Equal(t, BoundFromStart, ParseBoundPolicy("start"))
	assert.Equal(t, BoundFromStart, ParseBoundPolicy(""))
	assert.Equal(t, BoundFromStart, ParseBoundPolicy("anchor"))
}
