package fincalc

import "time"

// BusinessDaysBetween counts business days (Mon–Fri) in the interval
// (from, to]. It returns 0 whenever to ≤ from. No holiday calendar is
// consulted; this is a deterministic weekend-only approximation.
func BusinessDaysBetween(from, to time.Time) int {
	from = dateOnly(from)
	to = dateOnly(to)
	if !to.After(from) {
		return 0
	}

	total := int(to.Sub(from).Hours() / 24)

	// Full weeks contribute exactly 2 weekend days each regardless of the
	// starting weekday; only the remainder needs a scan.
	weeks := total / 7
	weekendDays := weeks * 2

	d := from.AddDate(0, 0, weeks*7)
	for i := 0; i < total%7; i++ {
		d = d.AddDate(0, 0, 1)
		if !isBusinessDay(d) {
			weekendDays++
		}
	}

	return total - weekendDays
}

func isBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
