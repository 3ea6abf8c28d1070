package schedule

import (
	"fmt"
	"time"
)

// AbsencePeriod blocks a provider for every calendar day from From to To,
// both inclusive. The time-of-day parts are ignored.
type AbsencePeriod struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Reason string    `json:"reason"`
}

func (a AbsencePeriod) Validate() error {
	if a.From.IsZero() || a.To.IsZero() {
		return fmt.Errorf("%w: from and to are required", ErrInvalidAbsence)
	}
	if a.To.Before(a.From) {
		return ErrInvalidAbsence
	}
	return nil
}

// Covers reports whether the calendar day of date, read in loc, falls inside
// the period. Both bounds are converted to loc before taking their day.
func (a AbsencePeriod) Covers(date time.Time, loc *time.Location) bool {
	d := dayKey(date, loc)
	return dayKey(a.From, loc) <= d && d <= dayKey(a.To, loc)
}

// Span renders the period as "YYYY-MM-DD to YYYY-MM-DD" in loc.
func (a AbsencePeriod) Span(loc *time.Location) string {
	return a.From.In(loc).Format(DateLayout) + " to " + a.To.In(loc).Format(DateLayout)
}

// FindAbsence returns the first period covering date.
func FindAbsence(periods []AbsencePeriod, date time.Time, loc *time.Location) (AbsencePeriod, bool) {
	for _, p := range periods {
		if p.Covers(date, loc) {
			return p, true
		}
	}
	return AbsencePeriod{}, false
}

func dayKey(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return y*10000 + int(m)*100 + d
}
