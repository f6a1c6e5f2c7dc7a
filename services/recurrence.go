package services

import (
	"fmt"
	"strings"
	"time"

	"salonpro-reminders/utils"

	"github.com/robfig/cron/v3"
)

// Recurrence is a validated schedule. It is also a cron.Schedule, so the cron
// runner drives it directly without a cron expression.
type Recurrence interface {
	cron.Schedule
	String() string
}

// DailyAt fires once a day at a fixed time of day.
type DailyAt struct {
	at time.Duration
}

func NewDailyAt(at time.Duration) (DailyAt, error) {
	if err := checkClock(at); err != nil {
		return DailyAt{}, err
	}
	return DailyAt{at: at}, nil
}

func (d DailyAt) Next(t time.Time) time.Time {
	return nextAt(t, d.at, nil)
}

func (d DailyAt) String() string {
	return "daily at " + utils.FormatClock(d.at)[:5]
}

// WeeklyAt fires once a week on a weekday at a fixed time of day.
type WeeklyAt struct {
	day time.Weekday
	at  time.Duration
}

func NewWeeklyAt(day time.Weekday, at time.Duration) (WeeklyAt, error) {
	if day < time.Sunday || day > time.Saturday {
		return WeeklyAt{}, fmt.Errorf("%w: weekday %d", ErrInvalidRecurrence, day)
	}
	if err := checkClock(at); err != nil {
		return WeeklyAt{}, err
	}
	return WeeklyAt{day: day, at: at}, nil
}

func (w WeeklyAt) Next(t time.Time) time.Time {
	return nextAt(t, w.at, map[time.Weekday]bool{w.day: true})
}

func (w WeeklyAt) String() string {
	return fmt.Sprintf("weekly on %s at %s", w.day, utils.FormatClock(w.at)[:5])
}

// Interval fires every `every` from `from` up to and including `to` each day,
// optionally restricted to some weekdays.
type Interval struct {
	every    time.Duration
	from     time.Duration
	to       time.Duration
	weekdays map[time.Weekday]bool
}

func NewInterval(every, from, to time.Duration, weekdays ...time.Weekday) (Interval, error) {
	if every < time.Minute {
		return Interval{}, fmt.Errorf("%w: interval %s is shorter than a minute", ErrInvalidRecurrence, every)
	}
	if err := checkClock(from); err != nil {
		return Interval{}, err
	}
	if err := checkClock(to); err != nil {
		return Interval{}, err
	}
	if from > to {
		return Interval{}, fmt.Errorf("%w: window %s-%s ends before it starts",
			ErrInvalidRecurrence, utils.FormatClock(from), utils.FormatClock(to))
	}
	iv := Interval{every: every, from: from, to: to}
	if len(weekdays) > 0 {
		iv.weekdays = make(map[time.Weekday]bool, len(weekdays))
		for _, d := range weekdays {
			if d < time.Sunday || d > time.Saturday {
				return Interval{}, fmt.Errorf("%w: weekday %d", ErrInvalidRecurrence, d)
			}
			iv.weekdays[d] = true
		}
	}
	return iv, nil
}

func (iv Interval) Next(t time.Time) time.Time {
	// at most a week of skipped days plus today
	for i := 0; i <= 7; i++ {
		day := utils.BeginningOfDay(t).AddDate(0, 0, i)
		if iv.weekdays != nil && !iv.weekdays[day.Weekday()] {
			continue
		}
		start := clockOn(day, iv.from)
		end := clockOn(day, iv.to)
		if t.Before(start) {
			return start
		}
		steps := t.Sub(start)/iv.every + 1
		next := start.Add(steps * iv.every)
		if !next.After(end) {
			return next
		}
	}
	return time.Time{}
}

func (iv Interval) String() string {
	return fmt.Sprintf("every %s between %s and %s", iv.every,
		utils.FormatClock(iv.from)[:5], utils.FormatClock(iv.to)[:5])
}

// nextAt is the first moment strictly after t at time-of-day at on an allowed day.
func nextAt(t time.Time, at time.Duration, days map[time.Weekday]bool) time.Time {
	for i := 0; i <= 7; i++ {
		day := utils.BeginningOfDay(t).AddDate(0, 0, i)
		if days != nil && !days[day.Weekday()] {
			continue
		}
		if fire := clockOn(day, at); fire.After(t) {
			return fire
		}
	}
	return time.Time{}
}

// clockOn is the wall-clock time at on day, which differs from day.Add(at)
// on days with a DST transition.
func clockOn(day time.Time, at time.Duration) time.Time {
	h := int(at / time.Hour)
	m := int((at % time.Hour) / time.Minute)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

func checkClock(at time.Duration) error {
	if at < 0 || at >= 24*time.Hour {
		return fmt.Errorf("%w: time of day %s out of range", ErrInvalidRecurrence, at)
	}
	if at%time.Minute != 0 {
		return fmt.Errorf("%w: time of day %s must be whole minutes", ErrInvalidRecurrence, at)
	}
	return nil
}

// ParseHours parses a business-hours range like "08:00-20:00".
func ParseHours(s string) (from, to time.Duration, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: hours %q (want HH:MM-HH:MM)", ErrInvalidRecurrence, s)
	}
	if from, err = utils.ParseClock(strings.TrimSpace(parts[0])); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	if to, err = utils.ParseClock(strings.TrimSpace(parts[1])); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	return from, to, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekly parses "sun 03:00" into a WeeklyAt.
func ParseWeekly(s string) (WeeklyAt, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) != 2 {
		return WeeklyAt{}, fmt.Errorf("%w: weekly schedule %q (want 'sun 03:00')", ErrInvalidRecurrence, s)
	}
	name := fields[0]
	if len(name) > 3 {
		name = name[:3]
	}
	day, ok := weekdayNames[name]
	if !ok {
		return WeeklyAt{}, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRecurrence, fields[0])
	}
	at, err := utils.ParseClock(fields[1])
	if err != nil {
		return WeeklyAt{}, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	return NewWeeklyAt(day, at)
}

// ParseDaily parses "09:00" into a DailyAt.
func ParseDaily(s string) (DailyAt, error) {
	at, err := utils.ParseClock(strings.TrimSpace(s))
	if err != nil {
		return DailyAt{}, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	return NewDailyAt(at)
}
