package takeprofit

import (
	"testing"

	"backtestopt/internal/candle"
)

func TestNoopNeverHits(t *testing.T) {
	n := Noop{}
	n.Clear(candle.Candle{Close: 100})
	n.Update(candle.Candle{Close: 1000})
	if n.UpsideHit() || n.DownsideHit() {
		t.Error("Noop must never hit")
	}
}

func TestBasicLongTakesProfitOnRise(t *testing.T) {
	b := NewBasic(BasicParams{UpThreshold: 0.1, DownThreshold: 0.1})
	b.Clear(candle.Candle{Close: 100})
	b.Update(candle.Candle{Close: 105})
	if b.UpsideHit() {
		t.Error("should not hit yet at 5% rise with 10% threshold")
	}
	b.Update(candle.Candle{Close: 111})
	if !b.UpsideHit() {
		t.Error("should hit after exceeding 10% rise")
	}
}

func TestBasicShortTakesProfitOnDrop(t *testing.T) {
	b := NewBasic(BasicParams{UpThreshold: 0.1, DownThreshold: 0.1})
	b.Clear(candle.Candle{Close: 100})
	b.Update(candle.Candle{Close: 89})
	if !b.DownsideHit() {
		t.Error("should hit after exceeding 10% drop")
	}
}
