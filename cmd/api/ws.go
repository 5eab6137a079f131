package main

import (
	"net/http"

	"carrent/internal/realtime"
)

// chatSocketHandler godoc
//
//	@Summary		Chat websocket
//	@Description	Upgrades to a websocket carrying JSON frames {type, payload}. Pass the access token as access_token when headers cannot be set.
//	@Tags			realtime
//	@Param			access_token	query	string	false	"Access token"
//	@Success		101
//	@Failure		401	{object}	ErrorResponse
//	@Router			/ws/chat [get]
func (app *application) chatSocketHandler(w http.ResponseWriter, r *http.Request) {
	app.serveSocket(w, r, app.chatHub)
}

// notificationSocketHandler godoc
//
//	@Summary		Rent notifications websocket
//	@Description	Receives ReceiveRentRequest, ReceiveRentResponse and UnreadNotificationsCount events.
//	@Tags			realtime
//	@Param			access_token	query	string	false	"Access token"
//	@Success		101
//	@Failure		401	{object}	ErrorResponse
//	@Router			/ws/notifications [get]
func (app *application) notificationSocketHandler(w http.ResponseWriter, r *http.Request) {
	app.serveSocket(w, r, app.notificationHub)
}

func (app *application) serveSocket(w http.ResponseWriter, r *http.Request, hub *realtime.Hub) {
	user := getUserFromContext(r)

	fields := []any{"hub", hub.Name(), "user_id", user.ID}
	if claims := getClaimsFromContext(r); claims != nil && claims.ExpiresAt != nil {
		fields = append(fields, "token_expires", claims.ExpiresAt.Time)
	}
	app.logger.Debugw("websocket upgrade", fields...)

	// the upgrader has already answered the request when this fails
	if err := hub.ServeWS(w, r, user.ID); err != nil {
		app.logger.Warnw("websocket upgrade failed", append(fields, "error", err)...)
	}
}
