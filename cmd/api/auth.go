package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"carrent/internal/auth"
	"carrent/internal/domain/users"
	"carrent/internal/mailer"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ErrorResponse is the envelope every failed request returns.
//
//	@name	ErrorResponse
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"car is not available for the selected dates"`
	Status  int    `json:"status" example:"409"`
}

type RegisterUserPayload struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=50"`
	Surname  string `json:"surname" validate:"required,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// registerUserHandler godoc
//
//	@Summary		Registers a user
//	@Description	Creates an unconfirmed account and emails an activation link. The account is removed again if the email cannot be sent.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RegisterUserPayload	true	"User details"
//	@Success		201		{object}	users.User
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/authentication/user [post]
func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload RegisterUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := &users.User{
		Username: payload.Username,
		Email:    payload.Email,
		Name:     payload.Name,
		Surname:  payload.Surname,
	}
	if err := user.Password.Set(payload.Password); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	ctx := r.Context()

	plainToken := uuid.New().String()

	if err := app.store.Users.CreateAndInvite(ctx, user, auth.HashToken(plainToken), app.config.mail.exp); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	activationURL := fmt.Sprintf("%s/confirm?token=%s", app.config.frontendURL, plainToken)

	vars := struct {
		Username      string
		ActivationURL string
	}{
		Username:      user.Username,
		ActivationURL: activationURL,
	}

	status, err := app.mailer.Send(mailer.UserWelcomeTemplate, user.Username, user.Email, vars)
	if err != nil {
		app.logger.Errorw("error sending welcome email", "error", err)

		// undo the registration so the address can be used again
		if err := app.store.Users.Delete(ctx, user.ID); err != nil {
			app.logger.Errorw("error deleting user", "error", err)
		}

		app.internalServerError(w, r, err)
		return
	}

	app.logger.Infow("email sent", "status code", status, "user", user.ID)

	if err := app.jsonResponse(w, http.StatusCreated, user); err != nil {
		app.internalServerError(w, r, err)
	}
}

// activateUserHandler godoc
//
//	@Summary	Activates a user
//	@Tags		authentication
//	@Param		token	path	string	true	"Invitation token"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Router		/authentication/activate/{token} [put]
func (app *application) activateUserHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := app.store.Users.Activate(r.Context(), token); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type CreateUserTokenPayload struct {
	Login    string `json:"login" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type TokenResponse struct {
	AccessToken           string      `json:"access_token"`
	AccessTokenExpiresAt  time.Time   `json:"access_token_expires_at"`
	RefreshToken          string      `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time   `json:"refresh_token_expires_at"`
	Roles                 []string    `json:"roles"`
	User                  *users.User `json:"user,omitempty"`
}

// createTokenHandler godoc
//
//	@Summary		Login
//	@Description	Exchanges an email or username and password for an access and refresh token pair.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateUserTokenPayload	true	"Credentials"
//	@Success		200		{object}	TokenResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/authentication/token [post]
func (app *application) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateUserTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	user, err := app.store.Users.GetByLogin(ctx, payload.Login)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := user.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	resp, err := app.issueTokens(r, user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	resp.User = user

	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// issueTokens signs an access token with the user's current roles and
// stores a fresh refresh token.
func (app *application) issueTokens(r *http.Request, userID int64) (*TokenResponse, error) {
	ctx := r.Context()

	roles, err := app.store.AccessControl.GetUserRoleNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := app.authenticator.GenerateAccessToken(userID, roles)
	if err != nil {
		return nil, err
	}

	plain, hash := auth.NewRefreshToken()
	refreshExp := time.Now().Add(app.config.auth.token.refreshTokenExp)
	if err := app.store.Users.SaveRefreshToken(ctx, userID, hash, refreshExp); err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          plain,
		RefreshTokenExpiresAt: refreshExp,
		Roles:                 roles,
	}, nil
}

type RefreshTokenPayload struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// refreshTokenHandler godoc
//
//	@Summary		Refresh tokens
//	@Description	Rotates the refresh token. The presented token is revoked and cannot be used again.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RefreshTokenPayload	true	"Refresh token"
//	@Success		200		{object}	TokenResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/authentication/refresh [post]
func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload RefreshTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	plain, hash := auth.NewRefreshToken()
	refreshExp := time.Now().Add(app.config.auth.token.refreshTokenExp)

	oldHash := auth.HashToken(payload.RefreshToken)
	rotated, err := app.store.Users.RotateRefreshToken(ctx, oldHash, hash, refreshExp)
	if err != nil {
		if errors.Is(err, users.ErrInvalidRefreshToken) {
			app.detectRefreshReuse(r, oldHash)
			app.unauthorizedErrorResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	roles, err := app.store.AccessControl.GetUserRoleNames(ctx, rotated.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	access, accessExp, err := app.authenticator.GenerateAccessToken(rotated.UserID, roles)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := TokenResponse{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          plain,
		RefreshTokenExpiresAt: refreshExp,
		Roles:                 roles,
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// detectRefreshReuse revokes every session of the owner when a token that
// was already rotated is presented again.
func (app *application) detectRefreshReuse(r *http.Request, tokenHash string) {
	ctx := r.Context()
	t, err := app.store.Users.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return
	}
	if t.Active(time.Now()) || t.ReplacedByHash == nil {
		return
	}

	n, err := app.store.Users.RevokeAllRefreshTokens(ctx, t.UserID, "Refresh token reuse")
	if err != nil {
		app.logger.Errorw("revoke after refresh reuse", "user_id", t.UserID, "error", err)
		return
	}
	app.logger.Warnw("refresh token reuse", "user_id", t.UserID, "revoked", n)
}

// revokeTokenHandler godoc
//
//	@Summary	Revoke a refresh token
//	@Tags		authentication
//	@Accept		json
//	@Param		payload	body	RefreshTokenPayload	true	"Refresh token"
//	@Success	204
//	@Failure	401	{object}	ErrorResponse
//	@Router		/authentication/revoke [post]
func (app *application) revokeTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload RefreshTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err := app.store.Users.RevokeRefreshToken(r.Context(), auth.HashToken(payload.RefreshToken), "Revoked by user")
	if err != nil {
		if errors.Is(err, users.ErrInvalidRefreshToken) {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
