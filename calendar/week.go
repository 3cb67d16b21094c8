/*
week.go - Work-week computation and the fixed hour-slot table

PURPOSE:
  The availability grid always shows one Mon-Fri work week and ten
  one-hour slots. This file owns both: which Monday a reference date
  belongs to, week navigation with the no-past rule, and the 08:00 to
  17:00 slot table.

WEEK START RULE:
  The week containing a date starts on its Monday. A Sunday belongs to
  the week that started six days earlier, not the week starting the
  next day. This matches ISO week semantics.

SEE ALSO:
  - availability/index.go: Consumes WorkWeek and HourSlots
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// HOUR SLOTS - Static configuration, 08:00 through 17:00
// =============================================================================

const (
	FirstSlotHour = 8
	SlotCount     = 10
)

// HourSlots returns the fixed slot table as "HH:00" labels.
func HourSlots() []string {
	slots := make([]string, SlotCount)
	for i := range slots {
		slots[i] = fmt.Sprintf("%02d:00", FirstSlotHour+i)
	}
	return slots
}

// ParseHourSlot validates an "HH:00" label against the slot table and
// returns the hour.
func ParseHourSlot(label string) (int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(label, "%02d:%02d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid hour slot %q: %w", label, err)
	}
	if minute != 0 || hour < FirstSlotHour || hour >= FirstSlotHour+SlotCount {
		return 0, fmt.Errorf("hour slot %q outside schedule (08:00-17:00)", label)
	}
	return hour, nil
}

// =============================================================================
// WORK WEEK - Five consecutive days starting on a Monday
// =============================================================================

type WorkWeek struct {
	Start TimePoint // always a Monday
}

// WorkWeekOf returns the work week containing the reference date.
func WorkWeekOf(ref TimePoint) WorkWeek {
	day := ref.Weekday()
	diff := 1 - int(day)
	if day == time.Sunday {
		diff = -6
	}
	return WorkWeek{Start: DayOf(ref.Time.AddDate(0, 0, diff))}
}

// CurrentWorkWeek returns the work week containing today.
func CurrentWorkWeek() WorkWeek { return WorkWeekOf(Today()) }

// Days returns the five working days Monday through Friday.
func (w WorkWeek) Days() []TimePoint {
	days := make([]TimePoint, 5)
	for i := range days {
		days[i] = w.Start.AddDays(i)
	}
	return days
}

// End returns the Friday of the week.
func (w WorkWeek) End() TimePoint { return w.Start.AddDays(4) }

// Contains reports whether the day falls on one of the five working days.
func (w WorkWeek) Contains(day TimePoint) bool {
	return day.AfterOrEqual(w.Start) && day.BeforeOrEqual(w.End())
}

func (w WorkWeek) Next() WorkWeek     { return WorkWeek{Start: w.Start.AddDays(7)} }
func (w WorkWeek) Previous() WorkWeek { return WorkWeek{Start: w.Start.AddDays(-7)} }

// HasPrevious reports whether navigating back stays at or after the
// week containing `today`. Scheduling into the past is not allowed, so
// the previous control is disabled once the shown week is the current
// one.
func (w WorkWeek) HasPrevious(today TimePoint) bool {
	return WorkWeekOf(today).Start.Before(w.Start)
}

func (w WorkWeek) String() string {
	return "[" + w.Start.String() + ", " + w.End().String() + "]"
}
