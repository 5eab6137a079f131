package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"carrent/internal/auth"
	"carrent/internal/domain/reviews"
	"carrent/internal/domain/users"
	"carrent/internal/reputation"
)

type userKey string

const userCtx userKey = "user"

func getUserFromContext(r *http.Request) *users.User {
	user, _ := r.Context().Value(userCtx).(*users.User)
	return user
}

type CurrentUserResponse struct {
	*users.User
	Roles []string `json:"roles"`
}

// getCurrentUserHandler godoc
//
//	@Summary	Current user
//	@Tags		users
//	@Produce	json
//	@Success	200	{object}	CurrentUserResponse
//	@Security	ApiKeyAuth
//	@Router		/users/me [get]
func (app *application) getCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	roles, err := app.store.AccessControl.GetUserRoleNames(r.Context(), user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, CurrentUserResponse{User: user, Roles: roles}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateUsernamePayload struct {
	Username string `json:"username" validate:"required,username"`
}

// updateUsernameHandler godoc
//
//	@Summary	Change username
//	@Tags		users
//	@Accept		json
//	@Param		payload	body	UpdateUsernamePayload	true	"New username"
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Failure	409	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/users/me/username [put]
func (app *application) updateUsernameHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateUsernamePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)
	if err := app.store.Users.UpdateUsername(r.Context(), user.ID, payload.Username); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// uploadAvatarHandler godoc
//
//	@Summary		Upload profile picture
//	@Description	Replaces the avatar. Allowed once every ten minutes, 2MB max.
//	@Tags			users
//	@Accept			mpfd
//	@Produce		json
//	@Param			avatar	formData	file	true	"jpeg, png or webp"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	ErrorResponse
//	@Failure		429		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/users/me/avatar [post]
func (app *application) uploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if !user.CanUploadAvatar(time.Now()) {
		app.domainErrorResponse(w, r, users.ErrAvatarUploadTooSoon)
		return
	}

	if err := r.ParseMultipartForm(2 << 20); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("unable to parse form, file size limit is 2MB"))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("unable to retrieve file: %w", err))
		return
	}
	defer file.Close()

	if !allowedImageTypes[header.Header.Get("Content-Type")] {
		app.badRequestResponse(w, r, errUnsupportedFileType)
		return
	}

	ctx := r.Context()

	url, err := app.uploadAsset(ctx, file, folderAvatars, fmt.Sprintf("user_%d_%d", user.ID, time.Now().Unix()), "image")
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Users.SetAvatar(ctx, user.ID, url); err != nil {
		app.deleteAsset(ctx, url, "image")
		app.domainErrorResponse(w, r, err)
		return
	}

	if user.ImageProfileURL != nil && *user.ImageProfileURL != "" {
		app.deleteAsset(ctx, *user.ImageProfileURL, "image")
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"image_profile_url": url}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// logoutHandler godoc
//
//	@Summary	Logout
//	@Tags		users
//	@Accept		json
//	@Param		payload	body	RefreshTokenPayload	true	"Refresh token of this device"
//	@Success	204
//	@Security	ApiKeyAuth
//	@Router		/users/logout [post]
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	var payload RefreshTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err := app.store.Users.RevokeRefreshToken(r.Context(), auth.HashToken(payload.RefreshToken), "Logged out")
	if err != nil && !errors.Is(err, users.ErrInvalidRefreshToken) {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// revokeAllTokensHandler godoc
//
//	@Summary	Logout everywhere
//	@Tags		users
//	@Produce	json
//	@Success	200	{object}	map[string]int64
//	@Security	ApiKeyAuth
//	@Router		/users/revoke-all [post]
func (app *application) revokeAllTokensHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	n, err := app.store.Users.RevokeAllRefreshTokens(r.Context(), user.ID, "Revoked all sessions")
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.logger.Infow("refresh tokens revoked", "user", user.ID, "count", n)

	if err := app.jsonResponse(w, http.StatusOK, map[string]int64{"revoked": n}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// searchUsersHandler godoc
//
//	@Summary	Search users
//	@Tags		users
//	@Produce	json
//	@Param		q	query		string	true	"Part of a username, name or surname"
//	@Success	200	{array}		users.Summary
//	@Security	ApiKeyAuth
//	@Router		/users/search [get]
func (app *application) searchUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) < 2 {
		app.badRequestResponse(w, r, fmt.Errorf("query must be at least 2 characters"))
		return
	}

	user := getUserFromContext(r)
	list, err := app.store.Users.Search(r.Context(), q, user.ID, 0)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UserProfile struct {
	users.Summary
	ReviewCount         int       `json:"review_count"`
	NegativeReviewCount int       `json:"negative_review_count"`
	AverageRating       float64   `json:"average_rating"`
	Online              bool      `json:"online"`
	MemberSince         time.Time `json:"member_since"`
}

// getUserProfileHandler godoc
//
//	@Summary	Public profile
//	@Tags		users
//	@Produce	json
//	@Param		userID	path		int	true	"User ID"
//	@Success	200		{object}	UserProfile
//	@Failure	404		{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/users/{userID} [get]
func (app *application) getUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := app.loadProfile(r)
	if err != nil {
		app.paramOrDomainError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, profile); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) loadProfile(r *http.Request) (*UserProfile, error) {
	userID, err := readIDParam(r, "userID")
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	u, err := app.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	avg, _, err := app.reputation.GetAverageRating(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserProfile{
		Summary: users.Summary{
			ID:              u.ID,
			Username:        u.Username,
			Name:            u.Name,
			Surname:         u.Surname,
			ImageProfileURL: u.ImageProfileURL,
			Rank:            u.Rank,
			IsVerified:      u.IsVerified,
		},
		ReviewCount:         u.ReviewCount,
		NegativeReviewCount: u.NegativeReviewCount,
		AverageRating:       avg,
		Online:              app.chatHub.IsOnline(u.ID),
		MemberSince:         u.CreatedAt,
	}, nil
}

type RatingResponse struct {
	UserID  int64   `json:"user_id"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// getUserRatingHandler godoc
//
//	@Summary	Average rating
//	@Tags		users
//	@Produce	json
//	@Param		userID	path		int	true	"User ID"
//	@Success	200		{object}	RatingResponse
//	@Security	ApiKeyAuth
//	@Router		/users/{userID}/rating [get]
func (app *application) getUserRatingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	avg, count, err := app.reputation.GetAverageRating(r.Context(), userID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, RatingResponse{UserID: userID, Average: avg, Count: count}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getUserReviewsHandler godoc
//
//	@Summary	Reviews with comments
//	@Tags		users
//	@Produce	json
//	@Param		userID	path		int	true	"User ID"
//	@Success	200		{array}		reviews.Review
//	@Security	ApiKeyAuth
//	@Router		/users/{userID}/reviews [get]
func (app *application) getUserReviewsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	list, err := app.store.Reviews.ListWithComments(r.Context(), userID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if list == nil {
		list = []reviews.Review{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

type RateUserPayload struct {
	Rating  float64 `json:"rating" validate:"rating"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

// rateUserHandler godoc
//
//	@Summary		Rate a car owner
//	@Description	Only renters who booked one of the owner's cars may rate them. Rating again replaces the earlier rating.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int				true	"Owner ID"
//	@Param			payload	body		RateUserPayload	true	"Rating from 0 to 5 in steps of 0.5"
//	@Success		200		{object}	reputation.Outcome
//	@Success		201		{object}	reputation.Outcome
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/users/{userID}/reviews [post]
func (app *application) rateUserHandler(w http.ResponseWriter, r *http.Request) {
	subjectID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload RateUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, reputation.ErrInvalidRating)
		return
	}
	if payload.Comment != nil && strings.TrimSpace(*payload.Comment) == "" {
		payload.Comment = nil
	}

	reviewer := getUserFromContext(r)
	out, err := app.reputation.RecordRating(r.Context(), subjectID, reviewer.ID, payload.Rating, payload.Comment)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	if err := app.jsonResponse(w, status, out); err != nil {
		app.internalServerError(w, r, err)
	}
}

// paramOrDomainError reports malformed URL parameters as 400 and passes
// everything else to domainErrorResponse.
func (app *application) paramOrDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *paramError
	if errors.As(err, &perr) {
		app.badRequestResponse(w, r, err)
		return
	}
	app.domainErrorResponse(w, r, err)
}
