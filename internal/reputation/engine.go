package reputation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

var (
	ErrInvalidRating = errors.New("rating must be between 0 and 5 in steps of 0.5")
	ErrUserNotFound  = errors.New("user not found")
	ErrSelfRating    = errors.New("users cannot rate themselves")
	ErrNotRenter     = errors.New("only users who rented a car from this owner can rate them")
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

// ValidateRating checks the range first, then the half-point step.
func ValidateRating(rating float64) error {
	if math.IsNaN(rating) || rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	scaled := rating * 10
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > 1e-9 || int64(rounded)%5 != 0 {
		return ErrInvalidRating
	}
	return nil
}

// Store is the persistence the engine needs. Implementations used inside
// WithTx must run every call on the same transaction.
type Store interface {
	// LockSubject locks the user row for the rest of the transaction and
	// returns its verification flag. exists is false for an unknown user.
	LockSubject(ctx context.Context, userID int64) (verified, exists bool, err error)
	HasRentedFrom(ctx context.Context, renterID, ownerID int64) (bool, error)
	UpsertRating(ctx context.Context, subjectID, reviewerID int64, rating float64, comment *string) (inserted bool, err error)
	Ratings(ctx context.Context, subjectID int64) ([]float64, error)
	SaveReputation(ctx context.Context, userID int64, stats Stats, rank Rank) error
}

type Repository interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Outcome is the subject's state after a rating was recorded.
type Outcome struct {
	SubjectID int64 `json:"subject_id"`
	Created   bool  `json:"created"`
	Stats     Stats `json:"stats"`
	Rank      Rank  `json:"rank"`
}

type Engine struct {
	repo   Repository
	logger *zap.SugaredLogger
}

func NewEngine(repo Repository, logger *zap.SugaredLogger) *Engine {
	return &Engine{repo: repo, logger: logger}
}

// RecordRating stores reviewerID's rating of subjectID, replacing any earlier
// rating by the same reviewer, and recomputes the subject's aggregate.
func (e *Engine) RecordRating(ctx context.Context, subjectID, reviewerID int64, rating float64, comment *string) (*Outcome, error) {
	if err := ValidateRating(rating); err != nil {
		return nil, err
	}

	var out *Outcome
	err := e.repo.WithTx(ctx, func(s Store) error {
		verified, exists, err := s.LockSubject(ctx, subjectID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}
		if reviewerID == subjectID {
			return ErrSelfRating
		}

		rented, err := s.HasRentedFrom(ctx, reviewerID, subjectID)
		if err != nil {
			return err
		}
		if !rented {
			return ErrNotRenter
		}

		inserted, err := s.UpsertRating(ctx, subjectID, reviewerID, rating, comment)
		if err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		stats, rank, err := recompute(ctx, s, subjectID, verified)
		if err != nil {
			return err
		}

		out = &Outcome{SubjectID: subjectID, Created: inserted, Stats: stats, Rank: rank}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Infow("rating recorded",
		"subject", subjectID, "reviewer", reviewerID, "rating", rating,
		"count", out.Stats.Count, "rank", out.Rank)
	return out, nil
}

// Recompute rebuilds the stored aggregate and rank of userID. It is used
// whenever something other than a new rating changes the inputs, such as
// the verification flag.
func (e *Engine) Recompute(ctx context.Context, userID int64) (Stats, Rank, error) {
	var (
		stats Stats
		rank  Rank
	)
	err := e.repo.WithTx(ctx, func(s Store) error {
		verified, exists, err := s.LockSubject(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}
		stats, rank, err = recompute(ctx, s, userID, verified)
		return err
	})
	return stats, rank, err
}

// GetAverageRating returns the rounded average and number of ratings for
// userID. A user without ratings yields (0, 0).
func (e *Engine) GetAverageRating(ctx context.Context, userID int64) (float64, int, error) {
	ratings, err := e.repo.Ratings(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	s := Aggregate(ratings)
	return s.Average, s.Count, nil
}

func recompute(ctx context.Context, s Store, userID int64, verified bool) (Stats, Rank, error) {
	ratings, err := s.Ratings(ctx, userID)
	if err != nil {
		return Stats{}, "", fmt.Errorf("load ratings: %w", err)
	}

	stats := Aggregate(ratings)
	rank := RankFor(stats, verified)

	if err := s.SaveReputation(ctx, userID, stats, rank); err != nil {
		return Stats{}, "", fmt.Errorf("save reputation: %w", err)
	}
	return stats, rank, nil
}
