package primitives

import (
	"fmt"
	"time"

	"backtestopt/pkg/mathutil"
)

// Timestamp is a Unix epoch time in milliseconds, UTC.
type Timestamp uint64

const timeLayout = "2006-01-02T15:04:05Z"

// Floor rounds the timestamp down to the nearest boundary of interval.
//
// Month and year intervals are calendar-aligned (the boundary is the first
// of the month/year, not an arbitrary fixed-length bucket); week intervals
// are anchored to Monday via weekOffsetMs; everything below a week is a
// plain fixed-size bucket.
func (t Timestamp) Floor(interval Interval) Timestamp {
	switch {
	case interval >= MonthMs:
		return floorCalendar(t, interval)
	case interval == WeekMs:
		return Timestamp(mathutil.FloorMultipleOffset(uint64(t), uint64(interval), weekOffsetMs))
	default:
		return Timestamp(mathutil.FloorMultiple(uint64(t), uint64(interval)))
	}
}

// Ceil rounds the timestamp up to the nearest boundary of interval.
func (t Timestamp) Ceil(interval Interval) Timestamp {
	switch {
	case interval >= MonthMs:
		floor := floorCalendar(t, interval)
		if floor == t {
			return t
		}
		return addCalendar(floor, interval)
	case interval == WeekMs:
		return Timestamp(mathutil.CeilMultipleOffset(uint64(t), uint64(interval), weekOffsetMs))
	default:
		return Timestamp(mathutil.CeilMultiple(uint64(t), uint64(interval)))
	}
}

func floorCalendar(t Timestamp, interval Interval) Timestamp {
	tm := t.Time()
	if interval >= YearMs {
		years := interval / YearMs
		y := tm.Year()
		y -= y % int(years)
		return FromTime(time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC))
	}
	months := interval / MonthMs
	totalMonths := int64(tm.Year())*12 + int64(tm.Month()) - 1
	totalMonths -= totalMonths % int64(months)
	y := totalMonths / 12
	m := totalMonths%12 + 1
	return FromTime(time.Date(int(y), time.Month(m), 1, 0, 0, 0, 0, time.UTC))
}

func addCalendar(t Timestamp, interval Interval) Timestamp {
	tm := t.Time()
	if interval >= YearMs {
		years := int(interval / YearMs)
		return FromTime(time.Date(tm.Year()+years, time.January, 1, 0, 0, 0, 0, time.UTC))
	}
	months := int(interval / MonthMs)
	return FromTime(tm.AddDate(0, months, 0))
}

// FromTime converts a time.Time to a Timestamp, truncating sub-millisecond
// precision and ignoring its original location (always interpreted as UTC
// instant).
func FromTime(tm time.Time) Timestamp {
	return Timestamp(tm.UnixMilli())
}

// Time converts the Timestamp back to a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// String renders the timestamp as an RFC3339 instant with a literal "Z"
// UTC designator, e.g. "2019-01-01T00:00:00Z".
func (t Timestamp) String() string {
	return t.Time().Format(timeLayout)
}

// ParseTimestamp parses an RFC3339 instant back into a Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("primitives: invalid timestamp %q: %w", s, err)
	}
	return FromTime(tm), nil
}

// MarshalJSON encodes the timestamp as its RFC3339 string form.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts either an RFC3339 string or a raw millisecond
// integer.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		s := string(data[1 : len(data)-1])
		v, err := ParseTimestamp(s)
		if err != nil {
			return err
		}
		*t = v
		return nil
	}
	var n uint64
	if _, err := fmt.Sscanf(string(data), "%d", &n); err != nil {
		return fmt.Errorf("primitives: invalid timestamp %q: %w", data, err)
	}
	*t = Timestamp(n)
	return nil
}
