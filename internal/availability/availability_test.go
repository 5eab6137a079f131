package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rng(start, end string) Range {
	return NewRange(date(start), date(end))
}

type listerFunc func(ctx context.Context, carID int64, exclude *int64) ([]Range, error)

func (f listerFunc) ActiveRanges(ctx context.Context, carID int64, exclude *int64) ([]Range, error) {
	return f(ctx, carID, exclude)
}

func TestRangeIntersects(t *testing.T) {
	existing := rng("2024-01-10", "2024-01-15")

	tests := []struct {
		name      string
		candidate Range
		want      bool
	}{
		{"shared end boundary", rng("2024-01-15", "2024-01-20"), true},
		{"shared start boundary", rng("2024-01-05", "2024-01-10"), true},
		{"day after", rng("2024-01-16", "2024-01-20"), false},
		{"day before", rng("2024-01-01", "2024-01-09"), false},
		{"contained", rng("2024-01-11", "2024-01-12"), true},
		{"containing", rng("2024-01-01", "2024-01-31"), true},
		{"identical", rng("2024-01-10", "2024-01-15"), true},
		{"single day inside", rng("2024-01-13", "2024-01-13"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.candidate.Intersects(existing))
			assert.Equal(t, tt.want, existing.Intersects(tt.candidate), "intersection must be symmetric")
		})
	}
}

func TestIntersectsIgnoresTimeOfDay(t *testing.T) {
	a := Range{Start: date("2024-01-10").Add(23 * time.Hour), End: date("2024-01-15").Add(1 * time.Hour)}
	b := Range{Start: date("2024-01-15").Add(22 * time.Hour), End: date("2024-01-18")}
	assert.True(t, a.Intersects(b))
}

func TestAvailable(t *testing.T) {
	existing := []Range{rng("2024-01-10", "2024-01-15"), rng("2024-02-01", "2024-02-03")}

	assert.True(t, Available(rng("2024-01-16", "2024-01-31"), existing))
	assert.False(t, Available(rng("2024-01-16", "2024-02-01"), existing))
	assert.True(t, Available(rng("2024-01-16", "2024-01-20"), nil))
}

func TestRentalDays(t *testing.T) {
	assert.Equal(t, 5, RentalDays(date("2024-01-10"), date("2024-01-15")))
	assert.Equal(t, 1, RentalDays(date("2024-01-10"), date("2024-01-10")))
	assert.Equal(t, 1, RentalDays(date("2024-01-15"), date("2024-01-10")))
	assert.Equal(t, 31, RentalDays(date("2024-01-01"), date("2024-02-01")))
}

func TestRangeValid(t *testing.T) {
	assert.True(t, rng("2024-01-10", "2024-01-10").Valid())
	assert.False(t, rng("2024-01-11", "2024-01-10").Valid())
}

func TestCheckerIsAvailable(t *testing.T) {
	var gotExclude *int64
	checker := NewChecker(listerFunc(func(_ context.Context, carID int64, exclude *int64) ([]Range, error) {
		gotExclude = exclude
		require.Equal(t, int64(7), carID)
		return []Range{rng("2024-01-10", "2024-01-15")}, nil
	}))

	ok, err := checker.IsAvailable(context.Background(), 7, date("2024-01-15"), date("2024-01-20"), nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = checker.IsAvailable(context.Background(), 7, date("2024-01-16"), date("2024-01-20"), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	exclude := int64(3)
	_, err = checker.IsAvailable(context.Background(), 7, date("2024-01-16"), date("2024-01-20"), &exclude)
	require.NoError(t, err)
	require.NotNil(t, gotExclude)
	assert.Equal(t, int64(3), *gotExclude)
}

func TestCheckerPropagatesStoreError(t *testing.T) {
	boom := errors.New("boom")
	checker := NewChecker(listerFunc(func(context.Context, int64, *int64) ([]Range, error) {
		return nil, boom
	}))

	ok, err := checker.IsAvailable(context.Background(), 1, date("2024-01-01"), date("2024-01-02"), nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}
