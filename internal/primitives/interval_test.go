package primitives

import "testing"

func TestIntervalString(t *testing.T) {
	cases := []struct {
		in   Interval
		want string
	}{
		{DayMs, "1d"},
		{HourMs, "1h"},
		{DayMs + 2*HourMs + 3*MinMs, "1d2h3m"},
		{0, "0ms"},
		{500, "500ms"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Errorf("Interval(%d).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in   string
		want Interval
	}{
		{"1d", DayMs},
		{"1d2h3m", DayMs + 2*HourMs + 3*MinMs},
		{"2w", 2 * WeekMs},
		{"500ms", 500},
	}
	for _, c := range cases {
		got, err := ParseInterval(c.in)
		if err != nil {
			t.Fatalf("ParseInterval(%q) error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseInterval(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseIntervalInvalid(t *testing.T) {
	if _, err := ParseInterval("1x"); err == nil {
		t.Error("expected error for unknown unit")
	}
	if _, err := ParseInterval(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestIntervalRoundTrip(t *testing.T) {
	// Testable property (spec.md section 8): Display/FromStr round-trip.
	vals := []Interval{DayMs, HourMs, WeekMs, MonthMs, YearMs, DayMs + MinMs, 0}
	for _, v := range vals {
		s := v.String()
		got, err := ParseInterval(s)
		if err != nil {
			t.Fatalf("ParseInterval(%q) error: %v", s, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %q -> %d", v, s, got)
		}
	}
}

func TestIntervalCeil(t *testing.T) {
	if got := Interval(DayMs + 1).Ceil(DayMs); got != 2*DayMs {
		t.Errorf("Ceil = %d, want %d", got, 2*DayMs)
	}
	if got := Interval(DayMs).Ceil(DayMs); got != DayMs {
		t.Errorf("Ceil idempotent on exact multiple: got %d, want %d", got, DayMs)
	}
}
