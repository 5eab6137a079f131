package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"carrent/internal/chat"
	chatstore "carrent/internal/domain/chat"
)

// listConversationsHandler godoc
//
//	@Summary	Conversations
//	@Tags		chat
//	@Produce	json
//	@Success	200	{array}	chatstore.ConversationSummary
//	@Security	ApiKeyAuth
//	@Router		/chat/conversations [get]
func (app *application) listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.chat.Conversations(r.Context(), getUserFromContext(r).ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if list == nil {
		list = []chatstore.ConversationSummary{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// chatHistoryHandler godoc
//
//	@Summary		Messages with a user
//	@Description	Oldest first. Pass before with the oldest id you have to load the previous page.
//	@Tags			chat
//	@Produce		json
//	@Param			userID	path	int	true	"Partner ID"
//	@Param			before	query	int	false	"Message ID to page before"
//	@Param			limit	query	int	false	"Page size, 200 max"
//	@Success		200		{array}	chatstore.Message
//	@Security		ApiKeyAuth
//	@Router			/chat/with/{userID} [get]
func (app *application) chatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	partnerID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	q := r.URL.Query()
	var before int64
	if v := q.Get("before"); v != "" {
		if before, err = strconv.ParseInt(v, 10, 64); err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("invalid before"))
			return
		}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := app.chat.History(r.Context(), getUserFromContext(r).ID, partnerID, before, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if list == nil {
		list = []chatstore.Message{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// markChatReadHandler godoc
//
//	@Summary	Mark a conversation read
//	@Tags		chat
//	@Produce	json
//	@Param		userID	path		int	true	"Partner ID"
//	@Success	200		{object}	map[string]int64
//	@Security	ApiKeyAuth
//	@Router		/chat/with/{userID}/read [put]
func (app *application) markChatReadHandler(w http.ResponseWriter, r *http.Request) {
	partnerID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	n, err := app.chat.MarkRead(r.Context(), getUserFromContext(r).ID, partnerID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]int64{"updated": n}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// sendMessageHandler godoc
//
//	@Summary		Send a message
//	@Description	Same as the SendMessage websocket event, for clients without an open socket.
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		chat.Outgoing	true	"Message"
//	@Success		201		{object}	chatstore.Message
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/chat/messages [post]
func (app *application) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var payload chat.Outgoing
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	m, err := app.chat.Send(r.Context(), getUserFromContext(r).ID, payload)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, m); err != nil {
		app.internalServerError(w, r, err)
	}
}

type EditMessagePayload struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// editMessageHandler godoc
//
//	@Summary	Edit a text message
//	@Tags		chat
//	@Accept		json
//	@Produce	json
//	@Param		messageID	path		int					true	"Message ID"
//	@Param		payload		body		EditMessagePayload	true	"New text"
//	@Success	200			{object}	chatstore.Message
//	@Failure	403			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/chat/messages/{messageID} [put]
func (app *application) editMessageHandler(w http.ResponseWriter, r *http.Request) {
	messageID, err := readIDParam(r, "messageID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload EditMessagePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	m, err := app.chat.Edit(r.Context(), getUserFromContext(r).ID, messageID, payload.Message)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, m); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteMessageHandler godoc
//
//	@Summary	Delete a message
//	@Tags		chat
//	@Param		messageID	path	int	true	"Message ID"
//	@Success	204
//	@Failure	403	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/chat/messages/{messageID} [delete]
func (app *application) deleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	messageID, err := readIDParam(r, "messageID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.chat.Delete(r.Context(), getUserFromContext(r).ID, messageID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// chatUnreadCountHandler godoc
//
//	@Summary	Unread messages
//	@Tags		chat
//	@Produce	json
//	@Success	200	{object}	map[string]int
//	@Security	ApiKeyAuth
//	@Router		/chat/unread-count [get]
func (app *application) chatUnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	n, err := app.chat.UnreadCount(r.Context(), getUserFromContext(r).ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]int{"count": n}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// onlineUsersHandler godoc
//
//	@Summary	Users connected to chat
//	@Tags		chat
//	@Produce	json
//	@Success	200	{array}	int64
//	@Security	ApiKeyAuth
//	@Router		/chat/online [get]
func (app *application) onlineUsersHandler(w http.ResponseWriter, r *http.Request) {
	ids := app.chat.OnlineUsers()
	if ids == nil {
		ids = []int64{}
	}

	if err := app.jsonResponse(w, http.StatusOK, ids); err != nil {
		app.internalServerError(w, r, err)
	}
}

// uploadChatImageHandler godoc
//
//	@Summary		Upload a chat image
//	@Description	Returns the URL to send as file_url of an image message. 5MB max.
//	@Tags			chat
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"jpeg, png or webp"
//	@Success		201		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/chat/uploads/image [post]
func (app *application) uploadChatImageHandler(w http.ResponseWriter, r *http.Request) {
	app.uploadChatFile(w, r, 5<<20, allowedImageTypes, folderChatImage, "image")
}

// uploadChatVoiceHandler godoc
//
//	@Summary		Upload a voice note
//	@Description	Returns the URL to send as file_url of a voice message. 10MB max.
//	@Tags			chat
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Audio file"
//	@Success		201		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/chat/uploads/voice [post]
func (app *application) uploadChatVoiceHandler(w http.ResponseWriter, r *http.Request) {
	app.uploadChatFile(w, r, 10<<20, allowedAudioTypes, folderChatVoice, "video")
}

func (app *application) uploadChatFile(w http.ResponseWriter, r *http.Request, maxBytes int64, allowed map[string]bool, folder, resourceType string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<10)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("unable to parse form, size limit is %dMB", maxBytes>>20))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("unable to retrieve file: %w", err))
		return
	}
	defer file.Close()

	if !allowed[header.Header.Get("Content-Type")] {
		app.badRequestResponse(w, r, errUnsupportedFileType)
		return
	}

	user := getUserFromContext(r)
	publicID := fmt.Sprintf("user_%d_%d", user.ID, time.Now().UnixNano())

	url, err := app.uploadAsset(r.Context(), file, folder, publicID, resourceType)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, map[string]string{"file_url": url}); err != nil {
		app.internalServerError(w, r, err)
	}
}
