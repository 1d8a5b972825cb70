package lake

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// TimeOfDayLayout formats the wall-clock time of an event.
	TimeOfDayLayout = "15:04:05"
	// CalendarDateLayout formats the calendar date of an event.
	CalendarDateLayout = "2006-01-02"
)

// Instant converts epoch milliseconds to a time in loc, truncated to the
// whole second.
func Instant(ms int64, loc *time.Location) time.Time {
	sec := ms / 1000
	if ms%1000 < 0 {
		sec--
	}
	return time.Unix(sec, 0).In(loc)
}

// TimeOfDay returns t formatted as hour:minute:second.
func TimeOfDay(t time.Time) string { return t.Format(TimeOfDayLayout) }

// CalendarDate returns t formatted as year-month-day.
func CalendarDate(t time.Time) string { return t.Format(CalendarDateLayout) }

// CalendarParts is the breakdown of one instant into calendar fields.
type CalendarParts struct {
	Hour  int32
	Day   int32
	Week  int32 // ISO 8601 week of year
	Month int32
	Year  int32
	// Weekday counts from 1 for Sunday to 7 for Saturday.
	Weekday int32
}

// ParseCalendarParts derives every calendar field from a time-of-day string
// and a calendar-date string. Both must have been produced from the same
// instant for the result to describe it.
func ParseCalendarParts(timeOfDay, calendarDate string) (CalendarParts, error) {
	clock, err := time.Parse(TimeOfDayLayout, timeOfDay)
	if err != nil {
		return CalendarParts{}, errors.Wrapf(err, "parsing time of day %q", timeOfDay)
	}
	date, err := time.Parse(CalendarDateLayout, calendarDate)
	if err != nil {
		return CalendarParts{}, errors.Wrapf(err, "parsing calendar date %q", calendarDate)
	}
	_, week := date.ISOWeek()
	return CalendarParts{
		Hour:    int32(clock.Hour()),
		Day:     int32(date.Day()),
		Week:    int32(week),
		Month:   int32(date.Month()),
		Year:    int32(date.Year()),
		Weekday: int32(date.Weekday()) + 1,
	}, nil
}
