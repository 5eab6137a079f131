package users

import (
	"errors"
	"time"

	"carrent/internal/reputation"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound             = errors.New("resource not found")
	ErrDuplicateEmail       = errors.New("a user with that email already exists")
	ErrDuplicateUsername    = errors.New("a user with that username already exists")
	ErrInvalidRefreshToken  = errors.New("refresh token is invalid or expired")
	ErrAvatarUploadTooSoon  = errors.New("avatar can only be changed once per cooldown period")
	QueryTimeoutDuration    = time.Second * 5
	RefreshTokenLifetime    = time.Hour * 24 * 7
	AvatarUploadCooldown    = time.Minute * 10
	DefaultRole             = "User"
	defaultSearchResultSize = 20
)

type User struct {
	ID                  int64           `json:"id"`
	Username            string          `json:"username"`
	Email               string          `json:"email"`
	Name                string          `json:"name"`
	Surname             string          `json:"surname"`
	Password            password        `json:"-"`
	IsConfirmed         bool            `json:"is_confirmed"`
	IsVerified          bool            `json:"is_verified"`
	Rank                reputation.Rank `json:"rank"`
	ReviewCount         int             `json:"review_count"`
	NegativeReviewCount int             `json:"negative_review_count"`
	ImageProfileURL     *string         `json:"image_profile_url"`
	LastAvatarUploadAt  *time.Time      `json:"last_avatar_upload_at,omitempty"`
	BalanceCents        int64           `json:"balance_cents"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// CanUploadAvatar reports whether the cooldown since the last avatar upload
// has passed at now.
func (u *User) CanUploadAvatar(now time.Time) bool {
	return u.LastAvatarUploadAt == nil || now.Sub(*u.LastAvatarUploadAt) >= AvatarUploadCooldown
}

// Summary is the public view of a user used in search results, reviews
// and chat partner lists.
type Summary struct {
	ID              int64           `json:"id"`
	Username        string          `json:"username"`
	Name            string          `json:"name"`
	Surname         string          `json:"surname"`
	ImageProfileURL *string         `json:"image_profile_url"`
	Rank            reputation.Rank `json:"rank"`
	IsVerified      bool            `json:"is_verified"`
}

type RefreshToken struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	TokenHash      string     `json:"-"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokedReason  *string    `json:"revoked_reason,omitempty"`
	ReplacedByHash *string    `json:"-"`
}

func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

type password struct {
	text *string
	hash []byte
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}
