package store

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"backtestopt/internal/candle"
	"backtestopt/internal/primitives"
)

// candleRow is the CSV row shape accepted by ImportCandlesCSV: one row per
// bar, timestamps as Unix milliseconds.
type candleRow struct {
	Time   int64   `csv:"time"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// ImportCandlesCSV reads candle rows from r and upserts them into the store
// under exchange/symbol/interval. It returns the number of rows imported.
func (s *SQLiteStore) ImportCandlesCSV(r io.Reader, exchange, symbol string, interval primitives.Interval) (int, error) {
	var rows []candleRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, fmt.Errorf("parsing candle csv: %w", err)
	}

	candles := make([]candle.Candle, len(rows))
	for i, row := range rows {
		if row.Time < 0 {
			return 0, fmt.Errorf("row %d: negative time %d", i, row.Time)
		}
		candles[i] = candle.Candle{
			Time:   primitives.Timestamp(row.Time),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		}
	}

	if err := s.InsertCandles(exchange, symbol, interval, candles); err != nil {
		return 0, err
	}
	return len(candles), nil
}

// ExportCandlesCSV writes candles as CSV rows to w, in the same shape
// ImportCandlesCSV accepts.
func ExportCandlesCSV(w io.Writer, candles []candle.Candle) error {
	rows := make([]candleRow, len(candles))
	for i, c := range candles {
		rows[i] = candleRow{
			Time:   int64(c.Time),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		}
	}
	return gocsv.Marshal(rows, w)
}

// parseIntervalArg is a small helper for CLI flag parsing: an interval flag
// may be given either as a primitives interval string ("1h") or a raw
// millisecond integer.
func parseIntervalArg(raw string) (primitives.Interval, error) {
	if iv, err := primitives.ParseInterval(raw); err == nil {
		return iv, nil
	}
	ms, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing interval %q: not a known interval name or millisecond count", raw)
	}
	return primitives.Interval(ms), nil
}
