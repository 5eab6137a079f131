package main

import (
	"errors"
	"net/http"
	"strconv"

	"carrent/internal/domain/accesscontrol"
	"carrent/internal/domain/balance"
	"carrent/internal/params"
	"carrent/internal/wallet"
)

type BalanceResponse struct {
	UserID       int64 `json:"user_id"`
	BalanceCents int64 `json:"balance_cents"`
}

// getBalanceHandler godoc
//
//	@Summary	Current balance
//	@Tags		balance
//	@Produce	json
//	@Success	200	{object}	BalanceResponse
//	@Security	ApiKeyAuth
//	@Router		/balance [get]
func (app *application) getBalanceHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	cents, err := app.wallet.Balance(r.Context(), user.ID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, BalanceResponse{UserID: user.ID, BalanceCents: cents}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type TopUpPayload struct {
	AmountCents   int64  `json:"amount_cents" validate:"required"`
	Description   string `json:"description" validate:"max=255"`
	PaymentMethod string `json:"payment_method" validate:"max=50"`
}

// topUpHandler godoc
//
//	@Summary		Top up
//	@Description	Amount must be between 30 and 100000, sent in cents.
//	@Tags			balance
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		TopUpPayload	true	"Top-up"
//	@Success		200		{object}	BalanceResponse
//	@Failure		400		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/balance/top-up [post]
func (app *application) topUpHandler(w http.ResponseWriter, r *http.Request) {
	var payload TopUpPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)
	cents, err := app.wallet.TopUp(r.Context(), user.ID, payload.AmountCents, payload.Description, payload.PaymentMethod)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, BalanceResponse{UserID: user.ID, BalanceCents: cents}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type DeductPayload struct {
	AmountCents int64  `json:"amount_cents" validate:"required,min=1"`
	Description string `json:"description" validate:"required,max=255"`
}

// deductHandler godoc
//
//	@Summary	Pay from balance
//	@Tags		balance
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		DeductPayload	true	"Amount in cents"
//	@Success	200		{object}	BalanceResponse
//	@Failure	409		{object}	ErrorResponse	"Insufficient funds"
//	@Security	ApiKeyAuth
//	@Router		/balance/deduct [post]
func (app *application) deductHandler(w http.ResponseWriter, r *http.Request) {
	var payload DeductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)
	cents, err := app.wallet.Deduct(r.Context(), user.ID, payload.AmountCents, payload.Description)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, BalanceResponse{UserID: user.ID, BalanceCents: cents}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type TransactionHistoryResponse struct {
	*wallet.History
	Pagination params.Pagination `json:"pagination"`
}

// transactionHistoryHandler godoc
//
//	@Summary	Transaction history
//	@Tags		balance
//	@Produce	json
//	@Param		page	query		int	false	"Page"
//	@Param		limit	query		int	false	"Page size"
//	@Success	200		{object}	TransactionHistoryResponse
//	@Security	ApiKeyAuth
//	@Router		/balance/transactions [get]
func (app *application) transactionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	p := params.ParsePagination(r.URL.Query())

	h, err := app.wallet.History(r.Context(), getUserFromContext(r).ID, p.Limit, p.Offset)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	p.ComputeMeta(h.Total)
	if h.Transactions == nil {
		h.Transactions = []balance.Transaction{}
	}

	if err := app.jsonResponse(w, http.StatusOK, TransactionHistoryResponse{History: h, Pagination: p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// sufficientBalanceHandler godoc
//
//	@Summary	Can I afford it
//	@Tags		balance
//	@Produce	json
//	@Param		amount	query		int	true	"Amount in cents"
//	@Success	200		{object}	map[string]bool
//	@Security	ApiKeyAuth
//	@Router		/balance/sufficient [get]
func (app *application) sufficientBalanceHandler(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		app.badRequestResponse(w, r, wallet.ErrInvalidAmount)
		return
	}

	ok, err := app.wallet.HasSufficient(r.Context(), getUserFromContext(r).ID, amount)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]bool{"sufficient": ok}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type PaymentPayload struct {
	UserID        int64                   `json:"user_id"`
	AmountCents   int64                   `json:"amount_cents" validate:"required,min=1"`
	Type          balance.TransactionType `json:"type" validate:"required,min=1,max=5"`
	Description   string                  `json:"description" validate:"max=255"`
	PaymentMethod string                  `json:"payment_method" validate:"max=50"`
	Reference     string                  `json:"reference" validate:"max=100"`
}

var errAdminOnlyPayment = errors.New("only admins may credit refunds or bonuses or act for another user")

// processPaymentHandler godoc
//
//	@Summary		Apply a payment
//	@Description	Type 1 TopUp, 2 Withdrawal, 3 Refund, 4 Payment, 5 Bonus. Refunds, bonuses and payments for other users need an admin role.
//	@Tags			balance
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		PaymentPayload	true	"Payment"
//	@Success		200		{object}	BalanceResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/balance/payments [post]
func (app *application) processPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload PaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)
	if payload.UserID == 0 {
		payload.UserID = user.ID
	}

	privileged := payload.UserID != user.ID || payload.Type == balance.Refund || payload.Type == balance.Bonus
	if privileged {
		roles, err := app.store.AccessControl.GetUserRoleNames(r.Context(), user.ID)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if !accesscontrol.HasAny(roles, accesscontrol.AdminRoles...) {
			app.forbiddenResponse(w, r, errAdminOnlyPayment)
			return
		}
	}
	if payload.Type == balance.TopUp {
		if err := wallet.ValidateTopUp(payload.AmountCents); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	cents, err := app.wallet.ProcessPayment(r.Context(), wallet.Payment{
		UserID:        payload.UserID,
		AmountCents:   payload.AmountCents,
		Type:          payload.Type,
		Description:   payload.Description,
		PaymentMethod: payload.PaymentMethod,
		Reference:     payload.Reference,
	})
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, BalanceResponse{UserID: payload.UserID, BalanceCents: cents}); err != nil {
		app.internalServerError(w, r, err)
	}
}
