package bookings

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("booking not found")
	QueryTimeoutDuration = time.Second * 5
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Booking is a reservation of a car for an inclusive range of days. A new
// booking is active and not agreed; the owner's decision sets both flags
// to the same value.
type Booking struct {
	ID              int64     `json:"id"`
	Reference       string    `json:"reference,omitempty"`
	CarID           int64     `json:"car_id"`
	CarName         string    `json:"car_name"`
	CarBrand        string    `json:"car_brand"`
	OwnerID         int64     `json:"owner_id"`
	RenterID        int64     `json:"renter_id"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Active          bool      `json:"active"`
	Agreed          bool      `json:"agreed"`
	Locations       []string  `json:"locations"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// FilterByStatus keeps the bookings whose derived status is s.
func FilterByStatus(list []Booking, s Status) []Booking {
	out := make([]Booking, 0, len(list))
	for i := range list {
		if list[i].Status() == s {
			out = append(out, list[i])
		}
	}
	return out
}

func (b *Booking) Status() Status {
	switch {
	case b.Active && b.Agreed:
		return StatusApproved
	case b.Active:
		return StatusPending
	default:
		return StatusRejected
	}
}

// PendingRequest is an owner's view of a booking awaiting a decision.
type PendingRequest struct {
	Booking
	RenterUsername string  `json:"renter_username"`
	RenterImageURL *string `json:"renter_image_url"`
	RenterRank     string  `json:"renter_rank"`
}
