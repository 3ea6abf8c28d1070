package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SlotDuration is the fixed length of a bookable appointment slot.
const SlotDuration = 30 * time.Minute

const DateLayout = "2006-01-02"

// Clock is a wall-clock time of day expressed in minutes after midnight.
type Clock int

const endOfDay Clock = 24 * 60

// ParseClock parses a strict "HH:MM" value. "24:00" is accepted so a range can
// run until midnight.
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok || !twoDigits(h) || !twoDigits(m) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	mins, err := strconv.Atoi(m)
	if err != nil || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	c := Clock(hours*60 + mins)
	if c > endOfDay {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return c, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On anchors the clock on the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(c) * time.Minute)
}

// ParseDate parses a "YYYY-MM-DD" calendar date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdays = [...]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

func (w Weekday) IsValid() bool {
	for _, d := range weekdays {
		if d == w {
			return true
		}
	}
	return false
}

// WeekdayOf returns the weekday name of date in its own location.
func WeekdayOf(date time.Time) Weekday {
	return weekdays[date.Weekday()]
}

// TimeRange is one working interval of a day, e.g. 09:00–12:00.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r TimeRange) Bounds() (Clock, Clock, error) {
	start, err := ParseClock(r.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(r.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

type DaySchedule struct {
	Day    Weekday     `json:"day"`
	Ranges []TimeRange `json:"ranges"`
}

// WeeklySchedule is a provider's recurring availability.
type WeeklySchedule []DaySchedule

// Day returns the first entry matching day. A listed day with no ranges is
// still a working day, just one without bookable time.
func (w WeeklySchedule) Day(day Weekday) (DaySchedule, bool) {
	for _, d := range w {
		if d.Day == day {
			return d, true
		}
	}
	return DaySchedule{}, false
}

// RangesFor returns the ranges of the first entry matching day.
func (w WeeklySchedule) RangesFor(day Weekday) []TimeRange {
	d, _ := w.Day(day)
	return d.Ranges
}

// Validate rejects unknown weekdays, duplicated days, malformed or empty
// ranges and ranges overlapping inside one day.
func (w WeeklySchedule) Validate() error {
	seen := make(map[Weekday]bool, len(w))
	for _, d := range w {
		if !d.Day.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidWeekday, d.Day)
		}
		if seen[d.Day] {
			return fmt.Errorf("%w: %s", ErrDuplicateDay, d.Day)
		}
		seen[d.Day] = true

		bounds := make([][2]Clock, 0, len(d.Ranges))
		for _, r := range d.Ranges {
			start, end, err := r.Bounds()
			if err != nil {
				return fmt.Errorf("%s: %w", d.Day, err)
			}
			if start >= end {
				return fmt.Errorf("%w: %s %s-%s", ErrEmptyRange, d.Day, r.Start, r.End)
			}
			for _, b := range bounds {
				if start < b[1] && end > b[0] {
					return fmt.Errorf("%w: %s %s-%s", ErrOverlappingRanges, d.Day, r.Start, r.End)
				}
			}
			bounds = append(bounds, [2]Clock{start, end})
		}
	}
	return nil
}

// SlotsOn returns the bookable slot starts for the weekday of date.
func (w WeeklySchedule) SlotsOn(date time.Time) ([]string, error) {
	return DaySlots(w.RangesFor(WeekdayOf(date)))
}

// DaySlots walks every range in input order in SlotDuration steps and emits
// each step whose full slot still fits before the range end. Slots produced by
// overlapping ranges are kept as-is.
func DaySlots(ranges []TimeRange) ([]string, error) {
	step := Clock(SlotDuration / time.Minute)
	slots := make([]string, 0)
	for _, r := range ranges {
		start, end, err := r.Bounds()
		if err != nil {
			return nil, err
		}
		for c := start; c+step <= end; c += step {
			slots = append(slots, c.String())
		}
	}
	return slots, nil
}
