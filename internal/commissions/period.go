package commissions

import "time"

const (
	periodDays = 7
	paymentDue = 72 * time.Hour
)

// WeekStart returns Monday 00:00 of the week containing t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	return time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
}

// PeriodEnd is the exclusive end of the billing week starting at start.
func PeriodEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, periodDays)
}

// DueDate is fixed when the payment is created and never recomputed.
func DueDate(periodEnd time.Time) time.Time {
	return periodEnd.Add(paymentDue)
}

// PreviousPeriodStart returns the start of the most recent fully closed week.
func PreviousPeriodStart(now time.Time, loc *time.Location) time.Time {
	return WeekStart(now, loc).AddDate(0, 0, -periodDays)
}

// IsPeriodStart reports whether t sits exactly on a week boundary in loc.
func IsPeriodStart(t time.Time, loc *time.Location) bool {
	return WeekStart(t, loc).Equal(t)
}
