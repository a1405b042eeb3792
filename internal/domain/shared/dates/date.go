package dates

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate  = errors.New("dates: invalid calendar date")
	ErrInvalidRange = errors.New("dates: check-out must be after check-in")
)

// Layout is the wire format for calendar dates. No time-of-day and no zone
// offset, so a night means the same thing on both sides of a DST boundary.
const Layout = "2006-01-02"

// Date is a whole calendar date. The zero value is "no date".
type Date struct {
	t time.Time
}

// New builds a Date from its components.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates an instant to its UTC calendar date.
func FromTime(t time.Time) Date {
	u := t.UTC()
	return New(u.Year(), u.Month(), u.Day())
}

// Parse reads an ISO-8601 calendar date.
func Parse(value string) (Date, error) {
	t, err := time.Parse(Layout, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return FromTime(t), nil
}

func (d Date) IsZero() bool           { return d.t.IsZero() }
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) Weekday() time.Weekday  { return d.t.Weekday() }

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// StartOfDay returns the midnight UTC instant beginning the date.
func (d Date) StartOfDay() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == `""` || raw == "null" {
		*d = Date{}
		return nil
	}
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, raw)
	}
	parsed, err := Parse(raw[1 : len(raw)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween counts whole days from a to b. Negative when b precedes a.
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t) / (24 * time.Hour))
}

// Range is a half-open stay interval [CheckIn, CheckOut).
type Range struct {
	CheckIn  Date
	CheckOut Date
}

// NewRange validates that the stay covers at least one night.
func NewRange(checkIn, checkOut Date) (Range, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return Range{}, ErrInvalidDate
	}
	if !checkIn.Before(checkOut) {
		return Range{}, ErrInvalidRange
	}
	return Range{CheckIn: checkIn, CheckOut: checkOut}, nil
}

// Nights is the number of nights the range spans.
func (r Range) Nights() int {
	return DaysBetween(r.CheckIn, r.CheckOut)
}

// Overlaps reports whether two half-open ranges share at least one night.
func (r Range) Overlaps(other Range) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

// Contains reports whether the date is one of the range's nights.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

// Dates lists every night in the range in order.
func (r Range) Dates() []Date {
	nights := r.Nights()
	if nights <= 0 {
		return nil
	}
	out := make([]Date, 0, nights)
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}
