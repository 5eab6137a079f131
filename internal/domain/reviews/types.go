package reviews

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("review not found")
	QueryTimeoutDuration = time.Second * 5
)

type Review struct {
	ID               int64     `json:"id"`
	SubjectID        int64     `json:"user_id"`
	ReviewerID       int64     `json:"reviewer_id"`
	ReviewerUsername string    `json:"reviewer_username"`
	ReviewerImageURL *string   `json:"reviewer_image_url"`
	Rating           float64   `json:"rating"`
	Comment          *string   `json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
