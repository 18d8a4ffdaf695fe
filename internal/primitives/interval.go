// Package primitives provides the millisecond-resolution Timestamp and
// Interval types shared by every other package in this module.
package primitives

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"backtestopt/pkg/mathutil"
)

// Interval is a duration expressed in milliseconds.
type Interval uint64

// Canonical interval constants, mirroring the exchange-agnostic calendar
// units the backtester reasons about.
const (
	SecMs   Interval = 1_000
	MinMs   Interval = 60_000
	HourMs  Interval = 3_600_000
	DayMs   Interval = 86_400_000
	WeekMs  Interval = 604_800_000
	MonthMs Interval = 2_629_746_000
	YearMs  Interval = 31_556_952_000
)

// weekOffsetMs anchors week-aligned floor/ceil operations on a Monday.
const weekOffsetMs uint64 = 345_600_000

type intervalFactor struct {
	suffix string
	value  Interval
}

// intervalFactors must stay ordered by value descending: String walks it
// greedily from the largest unit down. ParseInterval only looks up each
// group's suffix in it.
var intervalFactors = []intervalFactor{
	{"y", YearMs},
	{"M", MonthMs},
	{"w", WeekMs},
	{"d", DayMs},
	{"h", HourMs},
	{"m", MinMs},
	{"s", SecMs},
	{"ms", 1},
}

var intervalGroupRe = regexp.MustCompile(`\d+[a-zA-Z]+`)

// Ceil rounds the interval up to the nearest multiple of unit.
func (i Interval) Ceil(unit Interval) Interval {
	return Interval(mathutil.CeilMultiple(uint64(i), uint64(unit)))
}

// String formats the interval using the shorthand grammar ("1d2h3m").
func (i Interval) String() string {
	var sb strings.Builder
	remainder := uint64(i)
	for _, f := range intervalFactors {
		quotient := remainder / uint64(f.value)
		remainder %= uint64(f.value)
		if quotient > 0 {
			sb.WriteString(strconv.FormatUint(quotient, 10))
			sb.WriteString(f.suffix)
		}
		if remainder == 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "0ms"
	}
	return sb.String()
}

// ParseInterval parses the shorthand grammar ("1d2h3m", "2w") into an
// Interval. Unknown unit suffixes are rejected.
func ParseInterval(s string) (Interval, error) {
	groups := intervalGroupRe.FindAllString(s, -1)
	if len(groups) == 0 {
		return 0, fmt.Errorf("primitives: invalid interval %q", s)
	}
	var total uint64
	for _, g := range groups {
		v, err := calcIntervalGroup(g)
		if err != nil {
			return 0, fmt.Errorf("primitives: invalid interval %q: %w", s, err)
		}
		total += v
	}
	return Interval(total), nil
}

func calcIntervalGroup(group string) (uint64, error) {
	for i, c := range group {
		if (c < '0' || c > '9') {
			n, err := strconv.ParseUint(group[:i], 10, 64)
			if err != nil {
				return 0, err
			}
			for _, f := range intervalFactors {
				if f.suffix == group[i:] {
					return n * uint64(f.value), nil
				}
			}
			return 0, fmt.Errorf("unknown interval unit %q", group[i:])
		}
	}
	return 0, fmt.Errorf("invalid interval group %q", group)
}

// MarshalJSON encodes the interval as its millisecond integer value.
func (i Interval) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(i), 10)), nil
}

// UnmarshalJSON accepts either an integer millisecond count or a shorthand
// string ("1d", "1m5s").
func (i *Interval) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		*i = Interval(n)
		return nil
	}
	v, err := ParseInterval(s)
	if err != nil {
		return err
	}
	*i = v
	return nil
}
