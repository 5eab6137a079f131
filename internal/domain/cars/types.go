package cars

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("car not found")
	ErrHasActiveBookings = errors.New("car has active bookings and cannot be deleted")
	QueryTimeoutDuration = time.Second * 5
)

const TopLimit = 10

type Car struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	Category    string    `json:"category"`
	Year        int       `json:"year"`
	PriceCents  int64     `json:"price_cents"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"image_url"`
	ImageURLs   []string  `json:"image_urls"`
	RentCount   int       `json:"rent_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayName falls back to brand and model when the car has no name.
func (c *Car) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Brand + " " + c.Model
}

// PrimaryImage is the first gallery image, or the cover image.
func (c *Car) PrimaryImage() string {
	if len(c.ImageURLs) > 0 {
		return c.ImageURLs[0]
	}
	return c.ImageURL
}

// Filter narrows List. Zero values are ignored.
type Filter struct {
	Brand        string
	Year         int
	MinPrice     int64
	MaxPrice     int64
	Search       string
	Location     string
	AvailableNow bool
}

// Update holds the changeable fields of a car; nil means unchanged.
type Update struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Brand       *string `json:"brand" validate:"omitempty,min=1,max=50"`
	Model       *string `json:"model" validate:"omitempty,min=1,max=50"`
	Category    *string `json:"category" validate:"omitempty,max=50"`
	Year        *int    `json:"year" validate:"omitempty,min=1950,max=2100"`
	PriceCents  *int64  `json:"price_cents" validate:"omitempty,min=0"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Location    *string `json:"location" validate:"omitempty,max=200"`
}

// Apply copies the set fields of u onto c.
func (u Update) Apply(c *Car) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Brand != nil {
		c.Brand = *u.Brand
	}
	if u.Model != nil {
		c.Model = *u.Model
	}
	if u.Category != nil {
		c.Category = *u.Category
	}
	if u.Year != nil {
		c.Year = *u.Year
	}
	if u.PriceCents != nil {
		c.PriceCents = *u.PriceCents
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Location != nil {
		c.Location = *u.Location
	}
}
