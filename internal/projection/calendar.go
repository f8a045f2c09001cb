package projection

import "time"

// IsBusinessDay reports whether t falls on Monday through Friday. No
// holiday calendar is applied.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// BusinessDaysAfter returns the n business days strictly after d.
func BusinessDaysAfter(d time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, 0, n)
	for cur := d.AddDate(0, 0, 1); len(days) < n; cur = cur.AddDate(0, 0, 1) {
		if IsBusinessDay(cur) {
			days = append(days, cur)
		}
	}
	return days
}
