package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodStart(t *testing.T) {
	t.Run("monthly_keeps_day_of_month", func(t *testing.T) {
		start := date(2024, time.March, 15)
		assert.Equal(t, date(2024, time.March, 15), PeriodStart(start, models.FrequencyMonthly, 0))
		assert.Equal(t, date(2024, time.April, 15), PeriodStart(start, models.FrequencyMonthly, 1))
		assert.Equal(t, date(2025, time.January, 15), PeriodStart(start, models.FrequencyMonthly, 10))
	})

	t.Run("monthly_clamps_to_short_months", func(t *testing.T) {
		start := date(2024, time.January, 31)
		assert.Equal(t, date(2024, time.February, 29), PeriodStart(start, models.FrequencyMonthly, 1), "leap February")
		assert.Equal(t, date(2024, time.March, 31), PeriodStart(start, models.FrequencyMonthly, 2), "clamp does not stick")
		assert.Equal(t, date(2024, time.April, 30), PeriodStart(start, models.FrequencyMonthly, 3))
	})

	t.Run("monthly_clamps_in_non_leap_year", func(t *testing.T) {
		start := date(2023, time.January, 31)
		assert.Equal(t, date(2023, time.February, 28), PeriodStart(start, models.FrequencyMonthly, 1))
	})

	t.Run("weekly_keeps_weekday", func(t *testing.T) {
		start := date(2024, time.January, 1) // a Monday
		p := PeriodStart(start, models.FrequencyWeekly, 3)
		assert.Equal(t, date(2024, time.January, 22), p)
		assert.Equal(t, time.Monday, p.Weekday())
	})

	t.Run("quarterly_and_annual", func(t *testing.T) {
		start := date(2024, time.January, 31)
		assert.Equal(t, date(2024, time.April, 30), PeriodStart(start, models.FrequencyQuarterly, 1))
		assert.Equal(t, date(2024, time.July, 31), PeriodStart(start, models.FrequencyQuarterly, 2))
		assert.Equal(t, date(2025, time.January, 31), PeriodStart(start, models.FrequencyAnnual, 1))
	})

	t.Run("time_of_day_is_dropped", func(t *testing.T) {
		start := time.Date(2024, time.March, 15, 17, 45, 3, 0, time.UTC)
		assert.Equal(t, date(2024, time.April, 15), PeriodStart(start, models.FrequencyMonthly, 1))
	})
}

func TestDuePeriods(t *testing.T) {
	tmpl := func(start time.Time, freq models.Frequency) models.RecurringInvoiceTemplate {
		return models.RecurringInvoiceTemplate{StartDate: start, Frequency: freq}
	}

	t.Run("never_generated_includes_all_elapsed_periods", func(t *testing.T) {
		periods := DuePeriods(tmpl(date(2024, time.January, 1), models.FrequencyMonthly), date(2024, time.March, 10))
		require.Len(t, periods, 3)
		assert.Equal(t, Period{Start: date(2024, time.January, 1), Number: 1}, periods[0])
		assert.Equal(t, Period{Start: date(2024, time.February, 1), Number: 2}, periods[1])
		assert.Equal(t, Period{Start: date(2024, time.March, 1), Number: 3}, periods[2])
	})

	t.Run("cursor_excludes_generated_periods", func(t *testing.T) {
		tm := tmpl(date(2024, time.January, 1), models.FrequencyMonthly)
		cursor := datatypes.Date(date(2024, time.February, 1))
		tm.LastGeneratedPeriodStart = &cursor

		periods := DuePeriods(tm, date(2024, time.March, 10))
		require.Len(t, periods, 1)
		assert.Equal(t, date(2024, time.March, 1), periods[0].Start)
		// Ordinals count from the schedule start, not from the cursor.
		assert.Equal(t, 3, periods[0].Number)
	})

	t.Run("up_to_date_template_yields_nothing", func(t *testing.T) {
		tm := tmpl(date(2024, time.January, 1), models.FrequencyMonthly)
		cursor := datatypes.Date(date(2024, time.March, 1))
		tm.LastGeneratedPeriodStart = &cursor

		assert.Empty(t, DuePeriods(tm, date(2024, time.March, 10)))
	})

	t.Run("future_start_yields_nothing", func(t *testing.T) {
		assert.Empty(t, DuePeriods(tmpl(date(2024, time.June, 1), models.FrequencyMonthly), date(2024, time.March, 10)))
	})

	t.Run("end_date_caps_the_sequence", func(t *testing.T) {
		tm := tmpl(date(2024, time.January, 1), models.FrequencyMonthly)
		end := date(2024, time.February, 15)
		tm.EndDate = &end

		periods := DuePeriods(tm, date(2024, time.June, 1))
		require.Len(t, periods, 2)
		assert.Equal(t, date(2024, time.February, 1), periods[1].Start)
	})

	t.Run("clamped_cursor_does_not_regenerate", func(t *testing.T) {
		// Cursor sits on a clamped Feb 29; the next due period is March 31,
		// not February again.
		tm := tmpl(date(2024, time.January, 31), models.FrequencyMonthly)
		cursor := datatypes.Date(date(2024, time.February, 29))
		tm.LastGeneratedPeriodStart = &cursor

		periods := DuePeriods(tm, date(2024, time.April, 1))
		require.Len(t, periods, 1)
		assert.Equal(t, date(2024, time.March, 31), periods[0].Start)
	})

	t.Run("invalid_frequency_yields_nothing", func(t *testing.T) {
		// A zero-length step must not loop on the anchor forever.
		assert.Empty(t, DuePeriods(tmpl(date(2024, time.January, 1), "fortnightly"), date(2024, time.June, 1)))
	})
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 19, DaysBetween(date(2024, time.January, 1), date(2024, time.January, 20)))
	assert.Equal(t, 0, DaysBetween(date(2024, time.January, 1), date(2024, time.January, 1)))
	assert.Equal(t, -3, DaysBetween(date(2024, time.January, 10), date(2024, time.January, 7)))
	// Time of day never shifts the whole-day count.
	assert.Equal(t, 1, DaysBetween(
		time.Date(2024, time.January, 1, 23, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 2, 1, 0, 0, 0, time.UTC),
	))
}
