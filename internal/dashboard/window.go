package dashboard

import "time"

// Week is a Sunday-anchored calendar week. End is inclusive (23:59:59.999 on Saturday).
type Week struct {
	Start time.Time
	End   time.Time
}

// WeekOf returns the week containing t, evaluated in t's location.
func WeekOf(t time.Time) Week {
	y, m, d := t.Date()
	start := time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, t.Location())
	end := time.Date(y, m, d-int(t.Weekday())+6, 23, 59, 59, int(999*time.Millisecond), t.Location())
	return Week{Start: start, End: end}
}

// Contains reports whether t falls inside the week, bounds included.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// RollingWindow returns [now - days, now].
func RollingWindow(now time.Time, days int) (time.Time, time.Time) {
	return now.AddDate(0, 0, -days), now
}
