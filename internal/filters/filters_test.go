package filters

import "testing"

func TestPriceRoundDown(t *testing.T) {
	p := Price{Min: 1, Max: 100, Step: 0.5}
	cases := []struct {
		in, want float64
	}{
		{0.5, 0},
		{1.7, 1.5},
		{200, 100},
		{1.0, 1.0},
	}
	for _, c := range cases {
		if got := p.RoundDown(c.in); got != c.want {
			t.Errorf("RoundDown(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPriceValid(t *testing.T) {
	p := Price{Min: 1, Max: 10, Step: 0.5}
	if !p.Valid(1.5) {
		t.Error("1.5 should be valid")
	}
	if p.Valid(1.3) {
		t.Error("1.3 should be invalid (off step)")
	}
	if p.Valid(11) {
		t.Error("11 should be invalid (above max)")
	}
}

func TestSizeRoundUp(t *testing.T) {
	s := Size{Min: 1, Max: 100, Step: 1}
	if got := s.RoundUp(1.2); got != 2 {
		t.Errorf("RoundUp(1.2) = %v, want 2", got)
	}
	if got := s.RoundUp(0.5); got != 0 {
		t.Errorf("RoundUp(0.5) = %v, want 0 (below min)", got)
	}
}

func TestSizeRoundDown(t *testing.T) {
	s := Size{Min: 1, Max: 100, Step: 1}
	if got := s.RoundDown(1.9); got != 1 {
		t.Errorf("RoundDown(1.9) = %v, want 1", got)
	}
	if got := s.RoundDown(0.5); got != 0 {
		t.Errorf("RoundDown(0.5) = %v, want 0 (below min)", got)
	}
}
