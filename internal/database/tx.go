package database

import (
	"context"
	"errors"

	"carrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeUniqueViolation      = "23505"
	codeExclusionViolation   = "23P01"
	codeForeignKeyViolation  = "23503"
)

// WithTx runs fn inside a read-committed transaction.
func WithTx(db dbx.Beginner, ctx context.Context, fn func(pgx.Tx) error) error {
	return WithTxOptions(db, ctx, pgx.TxOptions{}, fn)
}

// WithTxOptions runs fn inside a transaction with the given options. The
// transaction is rolled back when fn returns an error or panics.
func WithTxOptions(db dbx.Beginner, ctx context.Context, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsSerializationFailure(err error) bool { return pgCode(err) == codeSerializationFailure }

func IsExclusionViolation(err error) bool { return pgCode(err) == codeExclusionViolation }

func IsForeignKeyViolation(err error) bool { return pgCode(err) == codeForeignKeyViolation }

// IsUniqueViolation reports whether err is a unique violation, optionally on
// the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
