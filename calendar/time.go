/*
Package calendar provides the time primitives shared by the scheduling
and availability domains.

PURPOSE:
  Both the installment scheduler and the availability grid reason about
  calendar days and hour slots, never about wall-clock instants. This
  package wraps time.Time into a TimePoint with explicit granularity so
  a due date (day) and a reception slot (hour) cannot be confused, and
  provides the month arithmetic the installment schedule depends on.

KEY CONCEPTS IN THIS FILE (time.go):
  - TimePoint: a calendar day or a day+hour, always UTC
  - AddMonthsClamped: month arithmetic that clamps to the end of the
    target month instead of rolling over (Jan 31 + 1 month = Feb 28)

CLAMPING POLICY:
  time.Time.AddDate normalizes overflow (Jan 31 + 1 month = Mar 2/3).
  For payment due dates this silently skips February for end-of-month
  sales, so the schedule uses AddMonthsClamped exclusively.

SEE ALSO:
  - week.go: Work-week computation and hour-slot table
  - schedule/derive.go: Due-date calculation
*/
package calendar

import "time"

// =============================================================================
// TIME POINT - Calendar day or day+hour, always UTC
// =============================================================================

type TimePoint struct {
	Time        time.Time
	Granularity Granularity
}

type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityHour
)

// Constructors
func NewDay(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Granularity: GranularityDay}
}

func NewHour(year int, month time.Month, day, hour int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, hour, 0, 0, 0, time.UTC), Granularity: GranularityHour}
}

func DayOf(t time.Time) TimePoint {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func Today() TimePoint {
	return DayOf(time.Now().UTC())
}

// ParseDay parses an ISO day string ("2006-01-02").
func ParseDay(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, err
	}
	return DayOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	switch tp.Granularity {
	case GranularityHour:
		return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), tp.Time.Hour(), 0, 0, 0, time.UTC)
	default:
		return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint {
	return TimePoint{Time: tp.Time.AddDate(0, 0, n), Granularity: tp.Granularity}
}

// AddMonthsClamped advances the time point by n months, clamping the
// day-of-month to the last day of the target month. Unlike AddDate it
// never rolls into the following month.
func (tp TimePoint) AddMonthsClamped(n int) TimePoint {
	year, month, day := tp.Time.Date()
	target := time.Date(year, month+time.Month(n), 1, tp.Time.Hour(), 0, 0, 0, time.UTC)
	if last := daysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	target = time.Date(target.Year(), target.Month(), day, tp.Time.Hour(), 0, 0, 0, time.UTC)
	return TimePoint{Time: target, Granularity: tp.Granularity}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Hour() int             { return tp.Time.Hour() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (tp TimePoint) IsWorkday() bool { return !tp.IsWeekend() }
func (tp TimePoint) IsZero() bool    { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	switch tp.Granularity {
	case GranularityHour:
		return tp.Time.Format("2006-01-02 15:00")
	default:
		return tp.Time.Format("2006-01-02")
	}
}

// ISODay returns the day portion in ISO form regardless of granularity.
func (tp TimePoint) ISODay() string { return tp.Time.Format("2006-01-02") }
