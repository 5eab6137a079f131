package main

import (
	"net/http"

	"carrent/internal/domain/rentnotifications"
)

// listNotificationsHandler godoc
//
//	@Summary	My rent notifications
//	@Tags		notifications
//	@Produce	json
//	@Success	200	{array}	rentnotifications.Notification
//	@Security	ApiKeyAuth
//	@Router		/notifications [get]
func (app *application) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.store.RentNotifications.ListForUser(r.Context(), getUserFromContext(r).ID, rentnotifications.ListLimit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if list == nil {
		list = []rentnotifications.Notification{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// unreadNotificationsCountHandler godoc
//
//	@Summary	Unread notifications
//	@Tags		notifications
//	@Produce	json
//	@Success	200	{object}	map[string]int
//	@Security	ApiKeyAuth
//	@Router		/notifications/unread-count [get]
func (app *application) unreadNotificationsCountHandler(w http.ResponseWriter, r *http.Request) {
	n, err := app.store.RentNotifications.UnreadCount(r.Context(), getUserFromContext(r).ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]int{"count": n}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getNotificationHandler godoc
//
//	@Summary	One rent notification
//	@Tags		notifications
//	@Produce	json
//	@Param		notificationID	path		int	true	"Notification ID"
//	@Success	200				{object}	rentnotifications.Notification
//	@Failure	404				{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/notifications/{notificationID} [get]
func (app *application) getNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "notificationID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	n, err := app.store.RentNotifications.GetByID(r.Context(), id)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	// other users' notifications look missing
	if n.RecipientID != getUserFromContext(r).ID {
		app.notFoundResponse(w, r, rentnotifications.ErrNotFound)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, n); err != nil {
		app.internalServerError(w, r, err)
	}
}

// markNotificationReadHandler godoc
//
//	@Summary	Mark one read
//	@Tags		notifications
//	@Param		notificationID	path	int	true	"Notification ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/notifications/{notificationID}/read [put]
func (app *application) markNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "notificationID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)
	if err := app.store.RentNotifications.MarkRead(r.Context(), id, user.ID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	app.refreshUnreadCount(r, user.ID)

	w.WriteHeader(http.StatusNoContent)
}

// markAllNotificationsReadHandler godoc
//
//	@Summary	Mark all read
//	@Tags		notifications
//	@Produce	json
//	@Success	200	{object}	map[string]int64
//	@Security	ApiKeyAuth
//	@Router		/notifications/read-all [put]
func (app *application) markAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	n, err := app.store.RentNotifications.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.refreshUnreadCount(r, user.ID)

	if err := app.jsonResponse(w, http.StatusOK, map[string]int64{"updated": n}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteNotificationHandler godoc
//
//	@Summary	Delete a notification
//	@Tags		notifications
//	@Param		notificationID	path	int	true	"Notification ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/notifications/{notificationID} [delete]
func (app *application) deleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "notificationID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)
	if err := app.store.RentNotifications.Delete(r.Context(), id, user.ID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	app.refreshUnreadCount(r, user.ID)

	w.WriteHeader(http.StatusNoContent)
}

// refreshUnreadCount tells the user's other devices about the new count.
func (app *application) refreshUnreadCount(r *http.Request, userID int64) {
	if err := app.notifications.PushUnreadCount(r.Context(), userID); err != nil {
		app.logger.Warnw("push unread count", "user", userID, "error", err)
	}
}
