// Package compliance computes the next filing deadline for each periodic
// tax obligation and how urgent it is.
package compliance

import (
	"sort"
	"time"

	"go-pos-books/internal/tax"
)

const (
	Monthly = "monthly"
	Annual  = "annual"
)

const (
	LevelOverdue  = "overdue"
	LevelDueToday = "due_today"
	LevelDueSoon  = "due_soon"
	LevelUpcoming = "upcoming"
)

// citGraceMonths is the filing window after the fiscal year end.
const citGraceMonths = 6

type Reminder struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Frequency string    `json:"frequency"`
	Due       time.Time `json:"-"`
	DueDate   string    `json:"due_date"` // YYYY-MM-DD
	DueInDays int       `json:"due_in_days"`
	Level     string    `json:"level"`
}

type Schedule struct {
	ReminderDaysBefore int        `json:"reminder_days_before"`
	Reminders          []Reminder `json:"reminders"`
}

// Reminders returns every obligation's next deadline relative to now,
// soonest first. A deadline is the last instant of its day, so an
// obligation due today is still "due_today" until midnight.
func Reminders(cfg tax.Config, now time.Time) Schedule {
	lead := cfg.ReminderLeadDays()

	list := []Reminder{
		{Key: "vat", Title: "VAT Remittance Due", Frequency: Monthly,
			Due: NextMonthly(validDay(cfg.VATDueDay, 21), now)},
		{Key: "paye", Title: "PAYE Remittance Due", Frequency: Monthly,
			Due: NextMonthly(validDay(cfg.PAYEDueDay, 10), now)},
		{Key: "wht", Title: "WHT Filing Due", Frequency: Monthly,
			Due: NextMonthly(validDay(cfg.WHTDueDay, 21), now)},
		{Key: "annual_return", Title: "Annual Tax Return Due", Frequency: Annual,
			Due: NextAnnual(validMonth(cfg.AnnualReturnMonth, 3), validDay(cfg.AnnualReturnDay, 31), now)},
		{Key: "cit", Title: "CIT Filing Due (Est.)", Frequency: Annual,
			Due: NextCIT(validMonth(cfg.CITFYEndMonth, 12), validDay(cfg.CITFYEndDay, 31), now)},
	}

	for i := range list {
		list[i].DueDate = list[i].Due.Format("2006-01-02")
		list[i].DueInDays = DaysUntil(list[i].Due, now)
		list[i].Level = Level(list[i].DueInDays, lead)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].DueInDays < list[j].DueInDays })

	return Schedule{ReminderDaysBefore: lead, Reminders: list}
}

// NextMonthly is the first deadline on dueDay (clamped to the month's
// length) that is not before now.
func NextMonthly(dueDay int, now time.Time) time.Time {
	year, month := now.Year(), now.Month()
	due := endOfDay(year, month, dueDay, now.Location())
	for due.Before(now) {
		month++
		due = endOfDay(year, month, dueDay, now.Location())
	}
	return due
}

func NextAnnual(month, day int, now time.Time) time.Time {
	year := now.Year()
	due := endOfDay(year, time.Month(month), day, now.Location())
	for due.Before(now) {
		year++
		due = endOfDay(year, time.Month(month), day, now.Location())
	}
	return due
}

// NextCIT is the first filing deadline, fiscal year end plus six months,
// that is not before now. It starts from last year's fiscal year end so a
// return still open from the previous year is reported first.
func NextCIT(fyMonth, fyDay int, now time.Time) time.Time {
	fyYear := now.Year() - 1
	due := citDeadline(fyYear, fyMonth, fyDay, now.Location())
	for due.Before(now) {
		fyYear++
		due = citDeadline(fyYear, fyMonth, fyDay, now.Location())
	}
	return due
}

func citDeadline(fyYear, fyMonth, fyDay int, loc *time.Location) time.Time {
	return endOfDay(fyYear, time.Month(fyMonth+citGraceMonths), fyDay, loc)
}

// DaysUntil counts calendar days from now's date to due's date.
func DaysUntil(due, now time.Time) int {
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(n).Hours() / 24)
}

func Level(dueInDays, lead int) string {
	switch {
	case dueInDays < 0:
		return LevelOverdue
	case dueInDays == 0:
		return LevelDueToday
	case dueInDays <= lead:
		return LevelDueSoon
	default:
		return LevelUpcoming
	}
}

// endOfDay builds the last instant of year/month/day. month may overflow
// (13 = January next year); day is clamped to the month's length.
func endOfDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

func validDay(day, def int) int {
	if day < 1 || day > 31 {
		return def
	}
	return day
}

func validMonth(month, def int) int {
	if month < 1 || month > 12 {
		return def
	}
	return month
}
