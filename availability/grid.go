/*
grid.go - Whole-week availability grid

PURPOSE:
  Assembles the Mon-Fri x 08:00-17:00 matrix the scheduler screen
  renders, one SlotAvailability per cell, plus the week navigation
  state.
*/
package availability

import "github.com/ferrex/backoffice-engine/calendar"

// DayAvailability is one weekday column of the grid.
type DayAvailability struct {
	Date  calendar.TimePoint
	Slots []SlotAvailability // one per hour slot, 08:00 first
}

// WeekGrid is the full derived availability view for one work week.
type WeekGrid struct {
	ResourceType ResourceType
	Week         calendar.WorkWeek
	Hours        []string
	Days         []DayAvailability
	HasPrevious  bool // false once the week is the current one
}

// ComputeWeekGrid derives the availability of every cell of the week
// from the busy index. `today` anchors the no-past navigation rule.
func ComputeWeekGrid(idx *BusyIndex, week calendar.WorkWeek, catalog Catalog, today calendar.TimePoint) WeekGrid {
	hours := calendar.HourSlots()
	grid := WeekGrid{
		ResourceType: idx.ResourceType(),
		Week:         week,
		Hours:        hours,
		Days:         make([]DayAvailability, 0, 5),
		HasPrevious:  week.HasPrevious(today),
	}
	for _, d := range week.Days() {
		col := DayAvailability{Date: d, Slots: make([]SlotAvailability, 0, len(hours))}
		for _, hour := range hours {
			col.Slots = append(col.Slots, idx.Available(d, hour, catalog))
		}
		grid.Days = append(grid.Days, col)
	}
	return grid
}
