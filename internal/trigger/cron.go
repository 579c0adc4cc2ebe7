package trigger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpr is a parsed five-field cron expression: minute, hour, day of
// month, month and day of week. Day of week accepts 0 through 7, where both
// 0 and 7 mean Sunday
type CronExpr struct {
	minute uint64
	hour   uint64
	dom    uint64
	month  uint64
	dow    uint64
	domAny bool
	dowAny bool
}

type cronBounds struct {
	name     string
	min, max int
}

var cronFields = []cronBounds{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day of month", 1, 31},
	{"month", 1, 12},
	{"day of week", 0, 7},
}

const cronSearchYears = 5

// ParseCron parses a cron expression. Each field accepts "*", single
// values, ranges "a-b", lists "a,b" and steps "*/n" or "a-b/n"
func ParseCron(expr string) (*CronExpr, error) {
	parts := strings.Fields(expr)
	if len(parts) != len(cronFields) {
		return nil, fmt.Errorf("%w: %q: expected %d fields", ErrInvalidCron,
			expr, len(cronFields))
	}

	masks := make([]uint64, len(parts))
	for i, p := range parts {
		m, err := parseCronField(p, cronFields[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidCron, expr, err)
		}
		masks[i] = m
	}

	dow := masks[4]
	if dow&(1<<7) != 0 {
		dow |= 1
		dow &^= 1 << 7
	}
	return &CronExpr{
		minute: masks[0],
		hour:   masks[1],
		dom:    masks[2],
		month:  masks[3],
		dow:    dow,
		domAny: strings.HasPrefix(parts[2], "*"),
		dowAny: strings.HasPrefix(parts[4], "*"),
	}, nil
}

// Next returns the first matching minute strictly after the given time, or
// the zero time when nothing matches within the search horizon
func (c *CronExpr) Next(after time.Time) time.Time {
	loc := after.Location()
	t := time.Date(after.Year(), after.Month(), after.Day(),
		after.Hour(), after.Minute(), 0, 0, loc).Add(time.Minute)
	limit := after.AddDate(cronSearchYears, 0, 0)

	for t.Before(limit) {
		y, m, d := t.Date()
		switch {
		case !hasBit(c.month, int(m)):
			t = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
		case !c.dayMatches(t):
			t = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		case !hasBit(c.hour, t.Hour()):
			t = time.Date(y, m, d, t.Hour()+1, 0, 0, 0, loc)
		case !hasBit(c.minute, t.Minute()):
			t = t.Add(time.Minute)
		default:
			return t
		}
	}
	return time.Time{}
}

func (c *CronExpr) dayMatches(t time.Time) bool {
	dom := hasBit(c.dom, t.Day())
	dow := hasBit(c.dow, int(t.Weekday()))
	if c.domAny || c.dowAny {
		return dom && dow
	}
	return dom || dow
}

func parseCronField(field string, b cronBounds) (uint64, error) {
	var mask uint64
	for item := range strings.SplitSeq(field, ",") {
		lo, hi, step, err := parseCronItem(item, b)
		if err != nil {
			return 0, err
		}
		for v := lo; v <= hi; v += step {
			mask |= 1 << v
		}
	}
	return mask, nil
}

func parseCronItem(item string, b cronBounds) (lo, hi, step int, err error) {
	step = 1
	rng := item
	hasStep := false
	if i := strings.IndexByte(item, '/'); i >= 0 {
		step, err = strconv.Atoi(item[i+1:])
		if err != nil || step < 1 {
			return 0, 0, 0, fmt.Errorf("%s: bad step %q", b.name, item)
		}
		rng = item[:i]
		hasStep = true
	}

	switch {
	case rng == "*":
		lo, hi = b.min, b.max
	case strings.Contains(rng, "-"):
		bounds := strings.SplitN(rng, "-", 2)
		lo, err = strconv.Atoi(bounds[0])
		if err == nil {
			hi, err = strconv.Atoi(bounds[1])
		}
	default:
		lo, err = strconv.Atoi(rng)
		hi = lo
		if hasStep {
			hi = b.max
		}
	}

	if err != nil {
		return 0, 0, 0, fmt.Errorf("%s: bad value %q", b.name, item)
	}
	if lo < b.min || hi > b.max || lo > hi {
		return 0, 0, 0, fmt.Errorf("%s: %q out of range %d-%d", b.name, item,
			b.min, b.max)
	}
	return lo, hi, step, nil
}

func hasBit(mask uint64, v int) bool {
	return mask&(1<<v) != 0
}
