package utils

import "time"

// AddBusinessDays advances t by n weekdays, skipping Saturday and Sunday.
// Federal I-9 guidance counts business days, not calendar days.
func AddBusinessDays(t time.Time, n int) time.Time {
	d := t
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return d
}
