package timex

import (
	"strings"
	"time"
)

// DayKeyLayout is the persisted calendar-day format (yyyy-MM-dd).
const DayKeyLayout = "2006-01-02"

// DayKey formats t as a calendar day in t's own location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDayKey parses a day key as midnight in loc.
func ParseDayKey(key string, loc *time.Location) (time.Time, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayKeyLayout, key, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts whole calendar days from the day named by fromKey to
// now's day. The count ignores DST shifts. ok is false when fromKey is
// empty or unparseable.
func DaysBetween(fromKey string, now time.Time) (days int, ok bool) {
	from, ok := ParseDayKey(fromKey, now.Location())
	if !ok {
		return 0, false
	}
	fy, fm, fd := from.Date()
	ty, tm, td := now.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour)), true
}

// StartOfWeek returns midnight of the most recent weekStart day on or before t.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// ParseWeekday accepts English weekday names ("monday", "Sun") and falls back
// to def when the name is unknown.
func ParseWeekday(name string, def time.Weekday) time.Weekday {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return def
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d
		}
	}
	return def
}
