package reputation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reviewKey struct{ subject, reviewer int64 }

type savedReputation struct {
	stats Stats
	rank  Rank
}

type fakeRepo struct {
	users   map[int64]bool // id -> verified
	rentals map[reviewKey]bool
	reviews map[reviewKey]float64
	saved   map[int64]savedReputation
	calls   []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:   map[int64]bool{},
		rentals: map[reviewKey]bool{},
		reviews: map[reviewKey]float64{},
		saved:   map[int64]savedReputation{},
	}
}

func (f *fakeRepo) WithTx(_ context.Context, fn func(Store) error) error {
	return fn(f)
}

func (f *fakeRepo) LockSubject(_ context.Context, id int64) (bool, bool, error) {
	f.calls = append(f.calls, "lock")
	verified, ok := f.users[id]
	return verified, ok, nil
}

func (f *fakeRepo) HasRentedFrom(_ context.Context, renter, owner int64) (bool, error) {
	f.calls = append(f.calls, "rented")
	return f.rentals[reviewKey{owner, renter}], nil
}

func (f *fakeRepo) UpsertRating(_ context.Context, subject, reviewer int64, rating float64, _ *string) (bool, error) {
	f.calls = append(f.calls, "upsert")
	k := reviewKey{subject, reviewer}
	_, existed := f.reviews[k]
	f.reviews[k] = rating
	return !existed, nil
}

func (f *fakeRepo) Ratings(_ context.Context, subject int64) ([]float64, error) {
	var out []float64
	for k, v := range f.reviews {
		if k.subject == subject {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveReputation(_ context.Context, id int64, s Stats, r Rank) error {
	f.saved[id] = savedReputation{s, r}
	return nil
}

func newEngine(repo *fakeRepo) *Engine {
	return NewEngine(repo, zap.NewNop().Sugar())
}

func TestRecordRatingValidation(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	repo.users[2] = false
	repo.rentals[reviewKey{1, 2}] = true
	engine := newEngine(repo)
	ctx := context.Background()

	_, err := engine.RecordRating(ctx, 1, 2, 3.3, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = engine.RecordRating(ctx, 1, 2, 5.5, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)
	assert.Empty(t, repo.calls, "invalid ratings never reach the store")

	_, err = engine.RecordRating(ctx, 99, 2, 4, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = engine.RecordRating(ctx, 1, 1, 4, nil)
	assert.ErrorIs(t, err, ErrSelfRating)

	_, err = engine.RecordRating(ctx, 2, 1, 4, nil)
	assert.ErrorIs(t, err, ErrNotRenter)

	assert.Empty(t, repo.reviews)
}

func TestRecordRatingIsIdempotentPerPair(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	repo.users[2] = true
	repo.rentals[reviewKey{1, 2}] = true
	engine := newEngine(repo)
	ctx := context.Background()

	out, err := engine.RecordRating(ctx, 1, 2, 2.0, nil)
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, 1, out.Stats.Count)
	assert.Equal(t, 1, out.Stats.Negative)

	out, err = engine.RecordRating(ctx, 1, 2, 4.5, nil)
	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, 1, out.Stats.Count)
	assert.Equal(t, 0, out.Stats.Negative)
	assert.Equal(t, 4.5, out.Stats.Average)

	assert.Len(t, repo.reviews, 1)
	assert.Equal(t, 4.5, repo.reviews[reviewKey{1, 2}])
	assert.Equal(t, 1, repo.saved[1].stats.Count)
}

func TestRecordRatingAssignsRank(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	for reviewer := int64(10); reviewer < 13; reviewer++ {
		repo.users[reviewer] = false
		repo.rentals[reviewKey{1, reviewer}] = true
	}
	engine := newEngine(repo)

	var out *Outcome
	var err error
	for reviewer := int64(10); reviewer < 13; reviewer++ {
		out, err = engine.RecordRating(context.Background(), 1, reviewer, 3.5, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, Trusted, out.Rank)
	assert.Equal(t, Trusted, repo.saved[1].rank)
}

func TestRecomputeAfterVerification(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = false
	for i := int64(0); i < 25; i++ {
		repo.reviews[reviewKey{1, 100 + i}] = 4.0
	}
	engine := newEngine(repo)

	_, rank, err := engine.Recompute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Beginner, rank)

	repo.users[1] = true
	stats, rank, err := engine.Recompute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Respected, rank)
	assert.Equal(t, 25, stats.Count)

	_, _, err = engine.Recompute(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecomputeRanksOnUnroundedMean(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = false
	for i := int64(0); i < 19; i++ {
		repo.reviews[reviewKey{1, 100 + i}] = 1.0
	}
	repo.reviews[reviewKey{1, 200}] = 1.5
	engine := newEngine(repo)

	stats, rank, err := engine.Recompute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, stats.Average)
	assert.Equal(t, Fraudulent, rank)
	assert.Equal(t, Fraudulent, repo.saved[1].rank)

	avg, count, err := engine.GetAverageRating(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, avg)
	assert.Equal(t, 20, count)
}

func TestGetAverageRating(t *testing.T) {
	repo := newFakeRepo()
	engine := newEngine(repo)

	avg, count, err := engine.GetAverageRating(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, count)

	repo.reviews[reviewKey{5, 1}] = 4.0
	repo.reviews[reviewKey{5, 2}] = 4.5
	avg, count, err = engine.GetAverageRating(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 4.3, avg)
	assert.Equal(t, 2, count)
}

type failingRepo struct{ *fakeRepo }

func (f failingRepo) SaveReputation(context.Context, int64, Stats, Rank) error {
	return errors.New("disk full")
}

func (f failingRepo) WithTx(_ context.Context, fn func(Store) error) error { return fn(f) }

func TestRecordRatingSurfacesStoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = true
	repo.rentals[reviewKey{1, 2}] = true
	engine := NewEngine(failingRepo{repo}, zap.NewNop().Sugar())

	_, err := engine.RecordRating(context.Background(), 1, 2, 4, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save reputation")
}
