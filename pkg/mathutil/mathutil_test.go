package mathutil

import "testing"

func TestRoundDown(t *testing.T) {
	cases := []struct {
		x    float64
		p    uint32
		want float64
	}{
		{1.2345, 2, 1.23},
		{1.999, 0, 1.0},
		{0.1, 2, 0.1},
	}
	for _, c := range cases {
		if got := RoundDown(c.x, c.p); got != c.want {
			t.Errorf("RoundDown(%v, %d) = %v, want %v", c.x, c.p, got, c.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		x    float64
		p    uint32
		want float64
	}{
		{1.125, 2, 1.13},
		{1.004, 2, 1.0},
		{2.5, 0, 3.0},
	}
	for _, c := range cases {
		if got := RoundHalfUp(c.x, c.p); got != c.want {
			t.Errorf("RoundHalfUp(%v, %d) = %v, want %v", c.x, c.p, got, c.want)
		}
	}
}

func TestFloorCeilMultiple(t *testing.T) {
	if got := FloorMultiple(1001, 1000); got != 1000 {
		t.Errorf("FloorMultiple(1001, 1000) = %d, want 1000", got)
	}
	if got := CeilMultiple(1001, 1000); got != 2000 {
		t.Errorf("CeilMultiple(1001, 1000) = %d, want 2000", got)
	}
	if got := CeilMultiple(1000, 1000); got != 1000 {
		t.Errorf("CeilMultiple(1000, 1000) = %d, want 1000", got)
	}
}

func TestAnnualized(t *testing.T) {
	if got := Annualized(0, 0.1); got != 0 {
		t.Errorf("Annualized(0, .) = %v, want 0", got)
	}
	const yearMs = 31_556_952_000
	if got := Annualized(yearMs, 1.0); got < 0.999 || got > 1.001 {
		t.Errorf("Annualized(year, 1.0) = %v, want ~1.0", got)
	}
}
