package compliance

import (
	"testing"
	"time"

	"go-pos-books/internal/tax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextMonthly(t *testing.T) {
	cases := []struct {
		now  string
		day  int
		want string
	}{
		{"2026-10-16 09:00", 21, "2026-10-21"},
		{"2026-10-21 18:30", 21, "2026-10-21"}, // same day is still open
		{"2026-10-22 00:01", 21, "2026-11-21"},
		{"2026-12-25 08:00", 21, "2027-01-21"},
		{"2026-02-10 08:00", 31, "2026-02-28"}, // clamped
		{"2026-03-01 08:00", 30, "2026-03-30"},
	}
	for _, tc := range cases {
		got := NextMonthly(tc.day, at(tc.now))
		assert.Equal(t, tc.want, got.Format("2006-01-02"), "now=%s day=%d", tc.now, tc.day)
	}
}

func TestNextAnnual(t *testing.T) {
	assert.Equal(t, "2027-03-31", NextAnnual(3, 31, at("2026-10-16 09:00")).Format("2006-01-02"))
	assert.Equal(t, "2026-03-31", NextAnnual(3, 31, at("2026-01-05 09:00")).Format("2006-01-02"))
	assert.Equal(t, "2028-02-29", NextAnnual(2, 29, at("2027-03-01 09:00")).Format("2006-01-02"))
}

func TestNextCIT(t *testing.T) {
	// Last year's return (FY ending Dec 2025) is due 30 June 2026.
	assert.Equal(t, "2026-06-30", NextCIT(12, 31, at("2026-03-10 09:00")).Format("2006-01-02"))
	assert.Equal(t, "2027-06-30", NextCIT(12, 31, at("2026-10-16 09:00")).Format("2006-01-02"))
	// FY ending 30 June: deadline 31 Dec, day clamps only where needed.
	assert.Equal(t, "2026-12-30", NextCIT(6, 30, at("2026-10-16 09:00")).Format("2006-01-02"))
	// FY ending 31 August: six months on is February, clamped.
	assert.Equal(t, "2027-02-28", NextCIT(8, 31, at("2026-10-16 09:00")).Format("2006-01-02"))
}

func TestDeadlinesNeverRegress(t *testing.T) {
	cfg := tax.DefaultConfig()
	cfg.VATDueDay = 31
	cfg.CITFYEndMonth, cfg.CITFYEndDay = 8, 31

	start := at("2024-01-01 00:00")
	for i := 0; i < 3*365*4; i++ {
		now := start.Add(time.Duration(i) * 6 * time.Hour)
		s := Reminders(cfg, now)
		for _, r := range s.Reminders {
			require.False(t, r.Due.Before(now), "%s due %s before now %s", r.Key, r.Due, now)
			require.GreaterOrEqual(t, r.DueInDays, 0)
		}
	}
}

func TestRemindersSortedAndClassified(t *testing.T) {
	cfg := tax.DefaultConfig()
	now := at("2026-10-16 09:00")

	s := Reminders(cfg, now)
	require.Len(t, s.Reminders, 5)
	assert.Equal(t, 7, s.ReminderDaysBefore)

	for i := 1; i < len(s.Reminders); i++ {
		assert.LessOrEqual(t, s.Reminders[i-1].DueInDays, s.Reminders[i].DueInDays)
	}

	byKey := map[string]Reminder{}
	for _, r := range s.Reminders {
		byKey[r.Key] = r
	}
	assert.Equal(t, "2026-10-21", byKey["vat"].DueDate)
	assert.Equal(t, 5, byKey["vat"].DueInDays)
	assert.Equal(t, LevelDueSoon, byKey["vat"].Level)
	assert.Equal(t, "2026-11-10", byKey["paye"].DueDate)
	assert.Equal(t, LevelUpcoming, byKey["paye"].Level)
	assert.Equal(t, "vat", s.Reminders[0].Key, "ties keep configuration order")
}

func TestLevel(t *testing.T) {
	assert.Equal(t, LevelOverdue, Level(-1, 7))
	assert.Equal(t, LevelDueToday, Level(0, 7))
	assert.Equal(t, LevelDueSoon, Level(7, 7))
	assert.Equal(t, LevelUpcoming, Level(8, 7))
}

func TestLeadTimeHasFloorOfOneDay(t *testing.T) {
	cfg := tax.DefaultConfig()
	cfg.ReminderDaysBefore = 0
	cfg.PAYEDueDay = 17

	s := Reminders(cfg, at("2026-10-16 09:00"))
	assert.Equal(t, 1, s.ReminderDaysBefore)
	for _, r := range s.Reminders {
		if r.Key == "paye" {
			assert.Equal(t, LevelDueSoon, r.Level)
		}
	}
}
