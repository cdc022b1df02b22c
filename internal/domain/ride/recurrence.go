package ride

import "time"

// RecurrenceRule describes a weekly recurrence batch: one independent ride
// is generated per matching calendar day up to and including EndDate.
type RecurrenceRule struct {
	Weekdays []time.Weekday
	EndDate  time.Time
}

// Occurrences expands the rule into departure times, starting from the first
// departure and keeping its time of day. Returns ErrNoValidOccurrences when
// the rule matches no calendar day.
func (rule RecurrenceRule) Occurrences(firstDeparture time.Time) ([]time.Time, error) {
	if len(rule.Weekdays) == 0 {
		return nil, ErrNoValidOccurrences
	}

	wanted := make(map[time.Weekday]bool, len(rule.Weekdays))
	for _, wd := range rule.Weekdays {
		wanted[wd] = true
	}

	first := firstDeparture.UTC()
	// only the calendar date of EndDate counts; any time of day it
	// carries must not leak an extra day into the range
	end := rule.EndDate.UTC()
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var out []time.Time
	for day := first; !calendarDay(day).After(endDay); day = day.AddDate(0, 0, 1) {
		if wanted[day.Weekday()] {
			out = append(out, day)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoValidOccurrences
	}
	return out, nil
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
