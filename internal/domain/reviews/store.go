package reviews

import (
	"context"

	"carrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Upsert(ctx context.Context, subjectID, reviewerID int64, rating float64, comment *string) (inserted bool, err error)
	Ratings(ctx context.Context, subjectID int64) ([]float64, error)
	ListWithComments(ctx context.Context, subjectID int64) ([]Review, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

// Upsert keeps one review per (subject, reviewer); a second rating replaces
// the first. inserted is false when an existing row was updated.
func (r *Repository) Upsert(ctx context.Context, subjectID, reviewerID int64, rating float64, comment *string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var inserted bool
	err := r.db.QueryRow(ctx, `
		INSERT INTO reviews (user_id, reviewer_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT reviews_subject_reviewer_key
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`, subjectID, reviewerID, rating, comment).Scan(&inserted)
	return inserted, err
}

func (r *Repository) Ratings(ctx context.Context, subjectID int64) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT rating::float8 FROM reviews WHERE user_id = $1`, subjectID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[float64])
}

// ListWithComments returns the reviews of subjectID that carry a non-empty
// comment, newest first.
func (r *Repository) ListWithComments(ctx context.Context, subjectID int64) ([]Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT rv.id, rv.user_id, rv.reviewer_id, u.username, u.image_profile_url,
		       rv.rating::float8, rv.comment, rv.created_at, rv.updated_at
		FROM reviews rv
		JOIN users u ON u.id = rv.reviewer_id
		WHERE rv.user_id = $1 AND rv.comment IS NOT NULL AND btrim(rv.comment) <> ''
		ORDER BY rv.updated_at DESC
	`, subjectID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Review, error) {
		var rv Review
		err := row.Scan(&rv.ID, &rv.SubjectID, &rv.ReviewerID, &rv.ReviewerUsername, &rv.ReviewerImageURL,
			&rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
		return rv, err
	})
}
