// Package availability decides whether a car can be booked for a date range.
package availability

import (
	"context"
	"time"
)

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewRange(start, end time.Time) Range {
	return Range{Start: Day(start), End: Day(end)}
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Intersects reports whether r and o share at least one day. Boundaries are
// inclusive: a range ending on day X and one starting on day X intersect.
// Ordering of Start and End is not validated.
func (r Range) Intersects(o Range) bool {
	return !Day(r.Start).After(Day(o.End)) && !Day(o.Start).After(Day(r.End))
}

// Valid reports whether Start is not after End.
func (r Range) Valid() bool {
	return !Day(r.Start).After(Day(r.End))
}

// Available reports whether candidate intersects none of existing.
func Available(candidate Range, existing []Range) bool {
	for _, b := range existing {
		if candidate.Intersects(b) {
			return false
		}
	}
	return true
}

// RentalDays is the number of whole days between start and end, at least 1.
func RentalDays(start, end time.Time) int {
	days := int(Day(end).Sub(Day(start)).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// RangeLister returns the date ranges of active bookings for a car, skipping
// the booking with id excludeBookingID when it is set.
type RangeLister interface {
	ActiveRanges(ctx context.Context, carID int64, excludeBookingID *int64) ([]Range, error)
}

type Checker struct {
	bookings RangeLister
}

func NewChecker(bookings RangeLister) *Checker {
	return &Checker{bookings: bookings}
}

// IsAvailable reports whether [start, end] is free for carID.
func (c *Checker) IsAvailable(ctx context.Context, carID int64, start, end time.Time, excludeBookingID *int64) (bool, error) {
	existing, err := c.bookings.ActiveRanges(ctx, carID, excludeBookingID)
	if err != nil {
		return false, err
	}
	return Available(NewRange(start, end), existing), nil
}
