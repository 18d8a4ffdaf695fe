package advice

import "testing"

func TestCombine(t *testing.T) {
	cases := []struct {
		a, b, want Advice
	}{
		{Long, Long, Long},
		{Long, Short, None},
		{Long, None, None},
		{None, None, None},
		{Short, Short, Short},
	}
	for _, c := range cases {
		if got := Combine(c.a, c.b); got != c.want {
			t.Errorf("Combine(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestPersistenceConfirmsAfterLevel(t *testing.T) {
	p := NewPersistence(2, false)
	if got := p.Update(Long); got != None {
		t.Errorf("update 1 = %v, want None", got)
	}
	if got := p.Update(Long); got != None {
		t.Errorf("update 2 = %v, want None", got)
	}
	if got := p.Update(Long); got != Long {
		t.Errorf("update 3 = %v, want Long", got)
	}
}

func TestPersistenceResetsOnChange(t *testing.T) {
	p := NewPersistence(2, false)
	p.Update(Long)
	p.Update(Short)
	if got := p.Update(Short); got != None {
		t.Errorf("expected reset to delay confirmation, got %v", got)
	}
}

func TestPersistenceZeroLevelConfirmsImmediately(t *testing.T) {
	p := NewPersistence(0, false)
	if got := p.Update(Long); got != Long {
		t.Errorf("level 0 should confirm immediately, got %v", got)
	}
}

func TestMidTrendCurrentPassesThroughImmediately(t *testing.T) {
	m := NewMidTrend(MidTrendCurrent)
	if got := m.Update(Long); got != Long {
		t.Errorf("got %v, want Long", got)
	}
	if got := m.Update(Short); got != Short {
		t.Errorf("got %v, want Short", got)
	}
}

func TestMidTrendPreviousPassesThroughInitialTrend(t *testing.T) {
	m := NewMidTrend(MidTrendPrevious)
	if got := m.Update(Long); got != Long {
		t.Errorf("first update should pass through as baseline, got %v", got)
	}
	if got := m.Update(Long); got != Long {
		t.Errorf("repeated same advice should keep passing through, got %v", got)
	}
	if got := m.Update(Short); got != Short {
		t.Errorf("changed advice should pass through once trend changes, got %v", got)
	}
}

func TestMidTrendIgnoreBlanksInitialTrend(t *testing.T) {
	m := NewMidTrend(MidTrendIgnore)
	if got := m.Update(Long); got != None {
		t.Errorf("first update should be suppressed, got %v", got)
	}
	if got := m.Update(Short); got != Short {
		t.Errorf("changed advice should pass through, got %v", got)
	}
}

func TestChangedEmitsOnlyOnTransition(t *testing.T) {
	c := NewChanged(true)
	if got := c.Update(Long); got != Long {
		t.Errorf("first update should pass through, got %v", got)
	}
	if got := c.Update(Long); got != None {
		t.Errorf("repeated value should be suppressed, got %v", got)
	}
	if got := c.Update(Short); got != Short {
		t.Errorf("changed value should pass through, got %v", got)
	}
}

func TestChangedDisabledPassesThrough(t *testing.T) {
	c := NewChanged(false)
	if got := c.Update(Long); got != Long {
		t.Errorf("got %v, want Long", got)
	}
	if got := c.Update(Long); got != Long {
		t.Errorf("disabled filter should always pass through, got %v", got)
	}
}
