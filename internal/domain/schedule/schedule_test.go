package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 570},
		{in: "23:59", want: 1439},
		{in: "24:00", want: 1440},
		{in: "24:30", wantErr: true},
		{in: "9:30", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "0930", wantErr: true},
		{in: "+9:00", wantErr: true},
		{in: "-0:30", wantErr: true},
		{in: "09:+5", wantErr: true},
		{in: " 9:00", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestDaySlots(t *testing.T) {
	tests := []struct {
		name   string
		ranges []TimeRange
		want   []string
	}{
		{
			name:   "one hour yields two slots",
			ranges: []TimeRange{{Start: "09:00", End: "10:00"}},
			want:   []string{"09:00", "09:30"},
		},
		{
			name:   "partial trailing slot is dropped",
			ranges: []TimeRange{{Start: "09:00", End: "10:15"}},
			want:   []string{"09:00", "09:30"},
		},
		{
			name:   "range shorter than a slot yields nothing",
			ranges: []TimeRange{{Start: "09:00", End: "09:20"}},
			want:   []string{},
		},
		{
			name:   "ranges keep input order",
			ranges: []TimeRange{{Start: "14:00", End: "15:00"}, {Start: "09:00", End: "09:30"}},
			want:   []string{"14:00", "14:30", "09:00"},
		},
		{
			name:   "overlapping ranges are not deduplicated",
			ranges: []TimeRange{{Start: "09:00", End: "10:00"}, {Start: "09:30", End: "10:30"}},
			want:   []string{"09:00", "09:30", "09:30", "10:00"},
		},
		{
			name:   "off-grid start walks from the start",
			ranges: []TimeRange{{Start: "09:15", End: "10:15"}},
			want:   []string{"09:15", "09:45"},
		},
		{
			name: "no ranges",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DaySlots(tt.ranges)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDaySlots_RejectsMalformedRange(t *testing.T) {
	_, err := DaySlots([]TimeRange{{Start: "9h", End: "10:00"}})
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestDaySlots_NeverExceedsRangeEnd(t *testing.T) {
	for start := 0; start < 24*60; start += 7 {
		for length := 0; length <= 180; length += 11 {
			end := start + length
			if end > 24*60 {
				continue
			}
			r := TimeRange{Start: Clock(start).String(), End: Clock(end).String()}
			slots, err := DaySlots([]TimeRange{r})
			require.NoError(t, err)
			for _, s := range slots {
				c, err := ParseClock(s)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, int(c), start)
				assert.LessOrEqual(t, int(c)+30, end, "slot %s overflows %s-%s", s, r.Start, r.End)
			}
		}
	}
}

func TestWeeklySchedule_SlotsOn(t *testing.T) {
	sched := WeeklySchedule{
		{Day: Monday, Ranges: []TimeRange{{Start: "09:00", End: "10:00"}}},
		{Day: Wednesday, Ranges: []TimeRange{{Start: "14:00", End: "15:30"}}},
	}

	monday := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	slots, err := sched.SlotsOn(monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30"}, slots)

	tuesday := monday.AddDate(0, 0, 1)
	slots, err = sched.SlotsOn(tuesday)
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.Nil(t, sched.RangesFor(WeekdayOf(tuesday)))
}

func TestWeeklySchedule_Validate(t *testing.T) {
	tests := []struct {
		name  string
		sched WeeklySchedule
		err   error
	}{
		{
			name:  "valid",
			sched: WeeklySchedule{{Day: Monday, Ranges: []TimeRange{{Start: "09:00", End: "12:00"}, {Start: "12:00", End: "13:00"}}}},
		},
		{
			name:  "unknown weekday",
			sched: WeeklySchedule{{Day: "lundi", Ranges: []TimeRange{{Start: "09:00", End: "12:00"}}}},
			err:   ErrInvalidWeekday,
		},
		{
			name:  "duplicate day",
			sched: WeeklySchedule{{Day: Friday}, {Day: Friday}},
			err:   ErrDuplicateDay,
		},
		{
			name:  "malformed clock",
			sched: WeeklySchedule{{Day: Monday, Ranges: []TimeRange{{Start: "9", End: "12:00"}}}},
			err:   ErrInvalidClock,
		},
		{
			name:  "end before start",
			sched: WeeklySchedule{{Day: Monday, Ranges: []TimeRange{{Start: "12:00", End: "09:00"}}}},
			err:   ErrEmptyRange,
		},
		{
			name:  "overlap",
			sched: WeeklySchedule{{Day: Monday, Ranges: []TimeRange{{Start: "09:00", End: "12:00"}, {Start: "11:00", End: "13:00"}}}},
			err:   ErrOverlappingRanges,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sched.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestWeekdayOf(t *testing.T) {
	assert.Equal(t, Monday, WeekdayOf(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, Sunday, WeekdayOf(time.Date(2025, time.March, 16, 0, 0, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("clinic", 3600)
	d, err := ParseDate("2025-03-10", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, d.Location())
	assert.Equal(t, 0, d.Hour())

	_, err = ParseDate("10/03/2025", loc)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestWeeklySchedule_Day(t *testing.T) {
	sched := WeeklySchedule{
		{Day: Monday, Ranges: []TimeRange{{Start: "09:00", End: "10:00"}}},
		{Day: Saturday},
		{Day: Monday, Ranges: []TimeRange{{Start: "14:00", End: "15:00"}}},
	}

	d, ok := sched.Day(Monday)
	assert.True(t, ok)
	assert.Equal(t, "09:00", d.Ranges[0].Start, "first entry wins")

	d, ok = sched.Day(Saturday)
	assert.True(t, ok)
	assert.Empty(t, d.Ranges)

	_, ok = sched.Day(Sunday)
	assert.False(t, ok)
}
