package database

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorClassification(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	wrapped := fmt.Errorf("create user: %w", unique)

	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.True(t, IsUniqueViolation(wrapped, "users_email_key"))
	assert.False(t, IsUniqueViolation(wrapped, "users_username_key"))

	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsExclusionViolation(fmt.Errorf("x: %w", &pgconn.PgError{Code: "23P01"})))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))

	assert.False(t, IsSerializationFailure(fmt.Errorf("plain")))
	assert.False(t, IsUniqueViolation(nil, ""))
}
