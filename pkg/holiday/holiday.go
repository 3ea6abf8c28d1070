// Package holiday answers whether a calendar date is a public holiday on
// which the clinic takes no appointments.
package holiday

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const dateLayout = "2006-01-02"

type Calendar interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

// StaticCalendar repeats the same month-day list every year.
type StaticCalendar struct {
	days    map[string]struct{}
	lookups *prometheus.CounterVec
}

// NewStaticCalendar accepts "MM-DD" values. lookups may be nil.
func NewStaticCalendar(monthDays []string, lookups *prometheus.CounterVec) (*StaticCalendar, error) {
	days := make(map[string]struct{}, len(monthDays))
	for _, md := range monthDays {
		if _, err := time.Parse("01-02", md); err != nil {
			return nil, fmt.Errorf("invalid holiday %q: want MM-DD", md)
		}
		days[md] = struct{}{}
	}
	return &StaticCalendar{days: days, lookups: lookups}, nil
}

func (c *StaticCalendar) IsHoliday(_ context.Context, date time.Time) (bool, error) {
	count(c.lookups, "static")
	return c.contains(date), nil
}

func (c *StaticCalendar) contains(date time.Time) bool {
	_, ok := c.days[date.Format("01-02")]
	return ok
}

// Dates lists the holidays of year as YYYY-MM-DD.
func (c *StaticCalendar) Dates(year int) []string {
	out := make([]string, 0, len(c.days))
	for md := range c.days {
		out = append(out, fmt.Sprintf("%04d-%s", year, md))
	}
	return out
}

func count(vec *prometheus.CounterVec, source string) {
	if vec != nil {
		vec.WithLabelValues(source).Inc()
	}
}
