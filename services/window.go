package services

import (
	"fmt"
	"time"

	"salonpro-reminders/models"
	"salonpro-reminders/repository"
	"salonpro-reminders/utils"
)

// Window is the band of appointment start times eligible for one reminder
// firing: a calendar date and an inclusive [From, To] range of clock offsets
// from that date's midnight.
type Window struct {
	Date time.Time
	From time.Duration
	To   time.Duration
}

const endOfDay = 24*time.Hour - time.Second

type leadBand struct {
	lead      time.Duration
	tolerance time.Duration
	sameDay   bool // date is "today" rather than the date of now+lead
}

var leadBands = map[models.ReminderType]leadBand{
	models.ReminderLongLead:  {lead: 24 * time.Hour, tolerance: 30 * time.Minute},
	models.ReminderShortLead: {lead: 2 * time.Hour, tolerance: 15 * time.Minute, sameDay: true},
}

// WindowFor returns the eligibility window of reminder type t at now. The
// band is clamped to the target date; a band that starts after the target
// date ends is empty.
func WindowFor(t models.ReminderType, now time.Time) (Window, error) {
	band, ok := leadBands[t]
	if !ok {
		return Window{}, fmt.Errorf("%w: %s", ErrUnknownReminderType, t)
	}

	day := utils.BeginningOfDay(now.Add(band.lead))
	if band.sameDay {
		day = utils.BeginningOfDay(now)
	}
	lower := now.Add(band.lead - band.tolerance)
	upper := now.Add(band.lead + band.tolerance)

	w := Window{Date: day, From: utils.ClockOffset(lower), To: utils.ClockOffset(upper)}
	nextDay := day.AddDate(0, 0, 1)
	if lower.Before(day) {
		w.From = 0
	}
	if !upper.Before(nextDay) {
		w.To = endOfDay
	}
	if !lower.Before(nextDay) {
		// the whole band is past the target date
		w.From, w.To = endOfDay, 0
	}
	return w, nil
}

// Empty reports whether no start time can match.
func (w Window) Empty() bool {
	return w.From > w.To
}

func (w Window) DateString() string {
	return w.Date.Format("2006-01-02")
}

func (w Window) FromClock() string {
	return utils.FormatClock(w.From)
}

func (w Window) ToClock() string {
	return utils.FormatClock(w.To)
}

// Contains reports whether an appointment starting at start falls in the window.
func (w Window) Contains(start time.Time) bool {
	if w.Empty() || !utils.BeginningOfDay(start).Equal(w.Date) {
		return false
	}
	off := utils.ClockOffset(start)
	return off >= w.From && off <= w.To
}

// Filter converts the window into the appointment query.
func (w Window) Filter() repository.DueFilter {
	return repository.DueFilter{
		Date:     w.DateString(),
		From:     w.FromClock(),
		To:       w.ToClock(),
		Statuses: models.ReminderEligibleStatuses,
	}
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s-%s", w.DateString(), w.FromClock(), w.ToClock())
}
