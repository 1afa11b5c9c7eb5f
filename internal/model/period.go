package model

import (
	"errors"
	"fmt"
	"time"
)

// ISODate is the wire layout for calendar dates.
const ISODate = "2006-01-02"

// MonthNames holds the Spanish display names, January first.
var MonthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// ErrInvalidPeriod is returned for a month outside 1-12 or a non-positive year.
var ErrInvalidPeriod = errors.New("model: invalid period")

// Period is a (year, month) viewing window.
type Period struct {
	Year  int
	Month time.Month
}

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: now.Month()}
}

// Validate reports whether the period names a real calendar month.
func (p Period) Validate() error {
	if p.Year < 1 || p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: %d-%02d", ErrInvalidPeriod, p.Year, int(p.Month))
	}
	return nil
}

// DaysIn returns the number of days in the month (28-31).
func (p Period) DaysIn() int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Bounds returns the first and last day of the month at midnight UTC.
func (p Period) Bounds() (first, last time.Time) {
	first = time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	last = time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC)
	return first, last
}

// Contains reports whether the calendar day of t falls inside the period.
// Only the date components of t are considered, in t's own location.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Prev returns the preceding month.
func (p Period) Prev() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Label renders the period as "Febrero 2024".
func (p Period) Label() string {
	if p.Month < time.January || p.Month > time.December {
		return fmt.Sprintf("%d-%02d", p.Year, int(p.Month))
	}
	return fmt.Sprintf("%s %d", MonthNames[p.Month-1], p.Year)
}

// Short renders the period as "02/2024".
func (p Period) Short() string {
	return fmt.Sprintf("%02d/%d", int(p.Month), p.Year)
}

// String implements fmt.Stringer as "2024-02".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// YearRange returns the years offered by period pickers: two either side of now.
func YearRange(now time.Time) []int {
	years := make([]int, 0, 5)
	for y := now.Year() - 2; y <= now.Year()+2; y++ {
		years = append(years, y)
	}
	return years
}
