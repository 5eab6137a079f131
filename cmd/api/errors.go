package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"carrent/internal/chat"
	"carrent/internal/domain/accesscontrol"
	"carrent/internal/domain/bookings"
	"carrent/internal/domain/cars"
	chatstore "carrent/internal/domain/chat"
	"carrent/internal/domain/favorites"
	"carrent/internal/domain/rentnotifications"
	"carrent/internal/domain/users"
	"carrent/internal/params"
	"carrent/internal/rental"
	"carrent/internal/reputation"
	"carrent/internal/wallet"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusNotFound, err.Error())
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict response", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusConflict, err.Error())
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusForbidden, "forbidden")
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) tooManyRequestsResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("too many requests", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusTooManyRequests, err.Error())
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter.Round(time.Second).String())
}

// domainErrorResponse maps service and repository errors to a status code.
// Anything unrecognised is a 500.
func (app *application) domainErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rental.ErrInvalidRange),
		errors.Is(err, reputation.ErrInvalidRating),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInvalidType),
		errors.Is(err, params.ErrInvalidDate),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, chat.ErrInvalidType),
		errors.Is(err, chat.ErrMissingFile),
		errors.Is(err, chat.ErrSelfMessage),
		errors.Is(err, chat.ErrNotEditable):
		app.badRequestResponse(w, r, err)

	case errors.Is(err, rental.ErrCarNotFound),
		errors.Is(err, rental.ErrBookingNotFound),
		errors.Is(err, rental.ErrNoPendingRequest),
		errors.Is(err, rental.ErrInvalidReference),
		errors.Is(err, reputation.ErrUserNotFound),
		errors.Is(err, wallet.ErrUserNotFound),
		errors.Is(err, cars.ErrNotFound),
		errors.Is(err, bookings.ErrNotFound),
		errors.Is(err, users.ErrNotFound),
		errors.Is(err, favorites.ErrCarNotFound),
		errors.Is(err, favorites.ErrNotFavorite),
		errors.Is(err, rentnotifications.ErrNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, chatstore.ErrNotFound),
		errors.Is(err, chat.ErrRecipientNotFound),
		errors.Is(err, accesscontrol.ErrRoleNotFound),
		errors.Is(err, accesscontrol.ErrNotAssigned):
		app.notFoundResponse(w, r, err)

	case errors.Is(err, rental.ErrCarUnavailable),
		errors.Is(err, rental.ErrOwnBooking),
		errors.Is(err, reputation.ErrSelfRating),
		errors.Is(err, reputation.ErrNotRenter),
		errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, cars.ErrHasActiveBookings),
		errors.Is(err, users.ErrDuplicateEmail),
		errors.Is(err, users.ErrDuplicateUsername):
		app.conflictResponse(w, r, err)

	case errors.Is(err, rental.ErrForbidden),
		errors.Is(err, chat.ErrNotAuthor),
		errors.Is(err, errSuperAdminOnly):
		app.forbiddenResponse(w, r, err)

	case errors.Is(err, users.ErrAvatarUploadTooSoon):
		app.tooManyRequestsResponse(w, r, err)

	default:
		app.internalServerError(w, r, err)
	}
}
