package domain

import (
	"fmt"
	"iter"
)

// Date is a Gregorian calendar date. The zero value is not a valid date.
type Date struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

func leapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func daysInMonth(m, y int) int {
	switch m {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if leapYear(y) {
			return 29
		}
		return 28
	}
	return 0
}

func (d Date) IsValid() bool {
	if d.Month < 1 || d.Month > 12 {
		return false
	}
	return d.Day >= 1 && d.Day <= daysInMonth(d.Month, d.Year)
}

// Next returns the following calendar day, rolling over months and years.
func (d Date) Next() Date {
	if d.Day < daysInMonth(d.Month, d.Year) {
		return Date{Day: d.Day + 1, Month: d.Month, Year: d.Year}
	}
	if d.Month < 12 {
		return Date{Day: 1, Month: d.Month + 1, Year: d.Year}
	}
	return Date{Day: 1, Month: 1, Year: d.Year + 1}
}

// Compare orders dates lexicographically by (year, month, day).
// It returns -1 when d is before o, 0 when equal and 1 when after.
func (d Date) Compare(o Date) int {
	if d.Year != o.Year {
		return sign(d.Year - o.Year)
	}
	if d.Month != o.Month {
		return sign(d.Month - o.Month)
	}
	return sign(d.Day - o.Day)
}

func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// Span yields every date from start to end inclusive, in order.
// A start strictly after end yields nothing; equal endpoints yield one date.
func Span(start, end Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := start; !d.After(end); d = d.Next() {
			if !yield(d) {
				return
			}
		}
	}
}

// SpanDays counts the dates Span(start, end) would yield.
func SpanDays(start, end Date) int {
	n := 0
	for range Span(start, end) {
		n++
	}
	return n
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}
