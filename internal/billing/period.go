package billing

import (
	"time"

	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

// DateOnly truncates t to UTC midnight. All engine date math is date-grained;
// every externally supplied time goes through this before comparison.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns whole days from a to b (negative if b precedes a),
// ignoring the time-of-day of either side.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

func monthsPerPeriod(f models.Frequency) int {
	switch f {
	case models.FrequencyMonthly:
		return 1
	case models.FrequencyQuarterly:
		return 3
	case models.FrequencyAnnual:
		return 12
	}
	return 0
}

// PeriodStart returns the start date of period n (0-based) for a schedule
// anchored at start with the given cadence.
//
// Month-based cadences keep the anchor's day-of-month; when a target month is
// too short (e.g. anchored on the 31st), the period falls on the last day of
// that month. The clamp is computed from the anchor each time, so a January 31
// schedule yields Feb 29, Mar 31, Apr 30 rather than sliding to the 29th
// forever after February.
func PeriodStart(start time.Time, f models.Frequency, n int) time.Time {
	start = DateOnly(start)
	if f == models.FrequencyWeekly {
		return start.AddDate(0, 0, 7*n)
	}

	firstOfTarget := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, n*monthsPerPeriod(f), 0)
	day := start.Day()
	if last := daysInMonth(firstOfTarget); day > last {
		day = last
	}
	return firstOfTarget.AddDate(0, 0, day-1)
}

func daysInMonth(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// Period is one occurrence of a recurring schedule: its start date and its
// 1-based ordinal counted from the template's start date. The ordinal is
// absolute, never relative to a run, so a formula amount for a given
// calendar period is the same whether the period is generated on time or
// swept up in a later catch-up run.
type Period struct {
	Start  time.Time
	Number int
}

// DuePeriods returns the periods of t that are due as of asOf and not yet
// generated, oldest first. A period is due once its start date has been
// reached; periods already covered by the generation cursor are excluded, as
// are periods past the template's end date. An unknown frequency yields
// nothing rather than a runaway sequence.
func DuePeriods(t models.RecurringInvoiceTemplate, asOf time.Time) []Period {
	if !t.Frequency.Valid() {
		return nil
	}

	asOf = DateOnly(asOf)
	var after *time.Time
	if t.LastGeneratedPeriodStart != nil {
		d := DateOnly(time.Time(*t.LastGeneratedPeriodStart))
		after = &d
	}

	var due []Period
	for n := 0; ; n++ {
		p := PeriodStart(t.StartDate, t.Frequency, n)
		if p.After(asOf) {
			break
		}
		if t.EndDate != nil && p.After(DateOnly(*t.EndDate)) {
			break
		}
		if after != nil && !p.After(*after) {
			continue
		}
		due = append(due, Period{Start: p, Number: n + 1})
	}
	return due
}
