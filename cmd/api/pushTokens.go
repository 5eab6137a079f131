package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"carrent/internal/domain/pushtokens"
)

var errInvalidPushToken = errors.New("not an Expo push token")

type SavePushTokenRequest struct {
	Token      string          `json:"token" validate:"required,max=255"`
	DeviceInfo json.RawMessage `json:"device_info" swaggertype:"object"`
}

type RemovePushTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// PruneStaleTokensRequest takes a Go duration such as "1680h" (70 days).
type PruneStaleTokensRequest struct {
	OlderThan string `json:"older_than" validate:"required"`
}

// savePushTokenHandler godoc
//
//	@Summary		Register a push token
//	@Description	Stores or refreshes the Expo push token of this device
//	@Tags			notifications
//	@Accept			json
//	@Param			payload	body	SavePushTokenRequest	true	"Push token"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/push-tokens [post]
func (app *application) addPushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload SavePushTokenRequest
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if !pushtokens.ValidToken(payload.Token) {
		app.badRequestResponse(w, r, errInvalidPushToken)
		return
	}

	user := getUserFromContext(r)
	if err := app.store.PushTokens.AddOrUpdatePushToken(r.Context(), user.ID, payload.Token, payload.DeviceInfo); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// removePushTokenHandler godoc
//
//	@Summary	Remove a push token
//	@Tags		notifications
//	@Accept		json
//	@Param		payload	body	RemovePushTokenRequest	true	"Token to remove"
//	@Success	204
//	@Security	ApiKeyAuth
//	@Router		/push-tokens [delete]
func (app *application) removePushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload RemovePushTokenRequest
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)
	if err := app.store.PushTokens.RemovePushToken(r.Context(), user.ID, payload.Token); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pruneStaleTokensHandler godoc
//
//	@Summary	Prune stale push tokens
//	@Tags		admin
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		PruneStaleTokensRequest	true	"Age threshold"
//	@Success	200		{object}	map[string]int64
//	@Security	ApiKeyAuth
//	@Router		/admin/push-tokens/prune [post]
func (app *application) pruneStaleTokensHandler(w http.ResponseWriter, r *http.Request) {
	var payload PruneStaleTokensRequest
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	dur, err := time.ParseDuration(payload.OlderThan)
	if err != nil || dur <= 0 {
		app.badRequestResponse(w, r, errors.New("older_than must be a positive duration"))
		return
	}

	n, err := app.store.PushTokens.PruneStaleTokens(r.Context(), dur)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]int64{"removed": n}); err != nil {
		app.internalServerError(w, r, err)
	}
}
