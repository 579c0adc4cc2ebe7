package trigger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type (
	// Schedule is a parsed interval expression such as "every 15 minutes" or
	// "every 2 days at 10:30"
	Schedule struct {
		unit   scheduleUnit
		count  int
		at     bool
		hour   int
		minute int
		second int
	}

	scheduleUnit int
)

const (
	unitMinute scheduleUnit = iota
	unitHour
	unitDay
	unitWeek
)

var scheduleUnits = map[string]scheduleUnit{
	"minute":  unitMinute,
	"minutes": unitMinute,
	"hour":    unitHour,
	"hours":   unitHour,
	"day":     unitDay,
	"days":    unitDay,
	"week":    unitWeek,
	"weeks":   unitWeek,
}

// ParseSchedule parses "every N <unit> [at <time>]". Units are minutes,
// hours, days and weeks. The at clause takes ":SS" for minutes, ":MM" for
// hours, and "HH:MM" or "HH:MM:SS" for days and weeks
func ParseSchedule(expr string) (*Schedule, error) {
	parts := strings.Fields(strings.ToLower(expr))
	if len(parts) != 3 && len(parts) != 5 || parts[0] != "every" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
	}

	count, err := strconv.Atoi(parts[1])
	if err != nil || count < 1 {
		return nil, fmt.Errorf("%w: bad interval in %q", ErrInvalidSchedule, expr)
	}

	unit, ok := scheduleUnits[parts[2]]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported unit %q", ErrInvalidSchedule,
			parts[2])
	}

	s := &Schedule{unit: unit, count: count}
	if len(parts) == 5 {
		if parts[3] != "at" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
		}
		if err := s.parseAt(parts[4]); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, expr, err)
		}
	}
	return s, nil
}

// First returns the first run time strictly after now
func (s *Schedule) First(now time.Time) time.Time {
	if !s.at {
		return s.advance(now)
	}
	t := s.anchor(now)
	for !t.After(now) {
		t = s.step(t)
	}
	return t
}

// Next returns the run following prev, skipping any occurrences that are
// already in the past at now
func (s *Schedule) Next(prev, now time.Time) time.Time {
	t := s.advance(prev)
	for !t.After(now) {
		t = s.advance(t)
	}
	return t
}

func (s *Schedule) parseAt(at string) error {
	switch s.unit {
	case unitMinute:
		sec, err := parseClockPart(at, ":", 59)
		s.second = sec
		s.at = err == nil
		return err
	case unitHour:
		minute, err := parseClockPart(at, ":", 59)
		s.minute = minute
		s.at = err == nil
		return err
	default:
		fields := strings.Split(at, ":")
		if len(fields) < 2 || len(fields) > 3 {
			return fmt.Errorf("expected HH:MM, got %q", at)
		}
		vals := make([]int, 3)
		limits := []int{23, 59, 59}
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil || v < 0 || v > limits[i] {
				return fmt.Errorf("bad time component %q", f)
			}
			vals[i] = v
		}
		s.hour, s.minute, s.second = vals[0], vals[1], vals[2]
		s.at = true
		return nil
	}
}

func parseClockPart(at, prefix string, limit int) (int, error) {
	if !strings.HasPrefix(at, prefix) {
		return 0, fmt.Errorf("expected %sNN, got %q", prefix, at)
	}
	v, err := strconv.Atoi(at[len(prefix):])
	if err != nil || v < 0 || v > limit {
		return 0, fmt.Errorf("bad time component %q", at)
	}
	return v, nil
}

// anchor returns the at-time within the period containing now
func (s *Schedule) anchor(now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()
	switch s.unit {
	case unitMinute:
		return time.Date(y, m, d, now.Hour(), now.Minute(), s.second, 0, loc)
	case unitHour:
		return time.Date(y, m, d, now.Hour(), s.minute, s.second, 0, loc)
	default:
		return time.Date(y, m, d, s.hour, s.minute, s.second, 0, loc)
	}
}

// step moves forward by a single unit
func (s *Schedule) step(t time.Time) time.Time {
	switch s.unit {
	case unitMinute:
		return t.Add(time.Minute)
	case unitHour:
		return t.Add(time.Hour)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func (s *Schedule) advance(t time.Time) time.Time {
	switch s.unit {
	case unitMinute:
		return t.Add(time.Duration(s.count) * time.Minute)
	case unitHour:
		return t.Add(time.Duration(s.count) * time.Hour)
	case unitDay:
		return t.AddDate(0, 0, s.count)
	default:
		return t.AddDate(0, 0, 7*s.count)
	}
}
