package rentnotifications

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("notification not found")
	QueryTimeoutDuration = time.Second * 5
)

// ListLimit caps the notifications returned to a user.
const ListLimit = 50

type Type string

const (
	TypeRentRequest   Type = "RentRequest"
	TypeRentApproved  Type = "RentApproved"
	TypeRentRejected  Type = "RentRejected"
	TypeRentCancelled Type = "RentCancelled"
)

// Notification records a step of a rent request. RecipientID is the owner
// for requests and cancellations and the renter for decisions. A request
// is Resolved once the owner answered it.
type Notification struct {
	ID          int64      `json:"id"`
	BookingID   *int64     `json:"booking_id"`
	CarID       int64      `json:"car_id"`
	RenterID    int64      `json:"renter_id"`
	OwnerID     int64      `json:"owner_id"`
	RecipientID int64      `json:"recipient_id"`
	Type        Type       `json:"type"`
	Message     string     `json:"message"`
	IsRead      bool       `json:"is_read"`
	Resolved    bool       `json:"resolved"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	DeliveredAt *time.Time `json:"-"`
}
