package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"carrent/internal/chat"
	"carrent/internal/domain/cars"
	"carrent/internal/domain/users"
	"carrent/internal/rental"
	"carrent/internal/reputation"
	"carrent/internal/wallet"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorResponse(t *testing.T) {
	app := newTestApplication(t, config{})

	cases := []struct {
		err  error
		want int
	}{
		{rental.ErrInvalidRange, http.StatusBadRequest},
		{wallet.ErrTopUpTooSmall, http.StatusBadRequest},
		{chat.ErrEmptyMessage, http.StatusBadRequest},
		{rental.ErrCarNotFound, http.StatusNotFound},
		{fmt.Errorf("load car: %w", cars.ErrNotFound), http.StatusNotFound},
		{chat.ErrMessageNotFound, http.StatusNotFound},
		{rental.ErrCarUnavailable, http.StatusConflict},
		{reputation.ErrSelfRating, http.StatusConflict},
		{wallet.ErrInsufficientFunds, http.StatusConflict},
		{users.ErrDuplicateEmail, http.StatusConflict},
		{rental.ErrForbidden, http.StatusForbidden},
		{errSuperAdminOnly, http.StatusForbidden},
		{users.ErrAvatarUploadTooSoon, http.StatusTooManyRequests},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		app.domainErrorResponse(w, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestParamOrDomainError(t *testing.T) {
	app := newTestApplication(t, config{})

	w := httptest.NewRecorder()
	app.paramOrDomainError(w, httptest.NewRequest(http.MethodGet, "/", nil), &paramError{name: "userID"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	app.paramOrDomainError(w, httptest.NewRequest(http.MethodGet, "/", nil), users.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInternalServerErrorHidesCause(t *testing.T) {
	app := newTestApplication(t, config{})

	w := httptest.NewRecorder()
	app.internalServerError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password leaked"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "leaked")
}
