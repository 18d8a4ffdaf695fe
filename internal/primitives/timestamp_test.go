package primitives

import (
	"testing"
	"time"
)

func TestTimestampString(t *testing.T) {
	ts := FromTime(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	if got, want := ts.String(), "2019-01-01T00:00:00Z"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	vals := []Timestamp{
		0,
		FromTime(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)),
		FromTime(time.Date(2021, 12, 31, 23, 59, 59, 0, time.UTC)),
	}
	for _, v := range vals {
		s := v.String()
		got, err := ParseTimestamp(s)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) error: %v", s, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %q -> %d", v, s, got)
		}
	}
}

func TestTimestampFloorCeilIdempotent(t *testing.T) {
	// Testable property (spec.md section 8): Floor/Ceil are idempotent.
	base := FromTime(time.Date(2019, 3, 15, 13, 27, 42, 0, time.UTC))
	for _, interval := range []Interval{DayMs, WeekMs, MonthMs, 3 * MonthMs, YearMs} {
		f := base.Floor(interval)
		if f.Floor(interval) != f {
			t.Errorf("Floor not idempotent for interval %s", interval)
		}
		c := base.Ceil(interval)
		if c.Ceil(interval) != c {
			t.Errorf("Ceil not idempotent for interval %s", interval)
		}
		if f > base {
			t.Errorf("Floor(%d, %s) = %d is after base", base, interval, f)
		}
		if c < base {
			t.Errorf("Ceil(%d, %s) = %d is before base", base, interval, c)
		}
	}
}

func TestTimestampFloorMonth(t *testing.T) {
	ts := FromTime(time.Date(2019, 3, 15, 13, 27, 42, 0, time.UTC))
	want := FromTime(time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC))
	if got := ts.Floor(MonthMs); got != want {
		t.Errorf("Floor(month) = %s, want %s", got, want)
	}
}

func TestTimestampFloorYear(t *testing.T) {
	ts := FromTime(time.Date(2019, 7, 4, 0, 0, 0, 0, time.UTC))
	want := FromTime(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	if got := ts.Floor(YearMs); got != want {
		t.Errorf("Floor(year) = %s, want %s", got, want)
	}
}

func TestTimestampFloorWeekAnchorsMonday(t *testing.T) {
	// 2019-01-07 was a Monday; flooring it to a week boundary must be a no-op.
	monday := FromTime(time.Date(2019, 1, 7, 0, 0, 0, 0, time.UTC))
	if got := monday.Floor(WeekMs); got != monday {
		t.Errorf("Floor(week) on a Monday = %s, want %s", got, monday)
	}
	midweek := FromTime(time.Date(2019, 1, 9, 12, 0, 0, 0, time.UTC))
	if got := midweek.Floor(WeekMs); got != monday {
		t.Errorf("Floor(week) = %s, want Monday %s", got, monday)
	}
}
