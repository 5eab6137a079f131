package main

import (
	"fmt"
	"net/http"
	"strings"

	"carrent/internal/domain/bookings"
	"carrent/internal/params"
	"carrent/internal/rental"

	"github.com/go-chi/chi/v5"
)

type CreateBookingPayload struct {
	CarID     int64    `json:"car_id" validate:"required,min=1"`
	StartDate string   `json:"start_date" validate:"required"`
	EndDate   string   `json:"end_date" validate:"required"`
	Locations []string `json:"locations" validate:"max=10,dive,max=200"`
}

// createBookingHandler godoc
//
//	@Summary		Request a booking
//	@Description	Books the car for the inclusive date range and notifies the owner. The booking stays pending until the owner responds.
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateBookingPayload	true	"Dates as YYYY-MM-DD"
//	@Success		201		{object}	bookings.Booking
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"Car is taken for these dates"
//	@Security		ApiKeyAuth
//	@Router			/bookings [post]
func (app *application) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateBookingPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	start, err := params.ParseDate(payload.StartDate)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	end, err := params.ParseDate(payload.EndDate)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	locations := make([]string, 0, len(payload.Locations))
	for _, l := range payload.Locations {
		if l = strings.TrimSpace(l); l != "" {
			locations = append(locations, l)
		}
	}

	user := getUserFromContext(r)
	booking, err := app.rental.CreateBooking(r.Context(), rental.BookingRequest{
		RenterID:  user.ID,
		CarID:     payload.CarID,
		StartDate: start,
		EndDate:   end,
		Locations: locations,
	})
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getBookingHandler godoc
//
//	@Summary	Booking details
//	@Tags		bookings
//	@Produce	json
//	@Param		bookingID	path		int	true	"Booking ID"
//	@Success	200			{object}	bookings.Booking
//	@Failure	404			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/bookings/{bookingID} [get]
func (app *application) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := readIDParam(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	booking, err := app.rental.GetBooking(r.Context(), bookingID, getUserFromContext(r).ID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getBookingByReferenceHandler godoc
//
//	@Summary	Booking by reference
//	@Tags		bookings
//	@Produce	json
//	@Param		reference	path		string	true	"Public booking reference"
//	@Success	200			{object}	bookings.Booking
//	@Failure	404			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/bookings/reference/{reference} [get]
func (app *application) getBookingByReferenceHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := app.refs.Decode(chi.URLParam(r, "reference"))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	booking, err := app.rental.GetBooking(r.Context(), bookingID, getUserFromContext(r).ID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// cancelBookingHandler godoc
//
//	@Summary	Cancel a booking
//	@Tags		bookings
//	@Param		bookingID	path	int	true	"Booking ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/bookings/{bookingID} [delete]
func (app *application) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := readIDParam(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.rental.CancelBooking(r.Context(), bookingID, getUserFromContext(r).ID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// listMyBookingsHandler godoc
//
//	@Summary	My bookings as renter
//	@Tags		bookings
//	@Produce	json
//	@Param		status	query	string	false	"pending, approved or rejected"
//	@Success	200		{array}	bookings.Booking
//	@Security	ApiKeyAuth
//	@Router		/bookings/mine [get]
func (app *application) listMyBookingsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.store.Bookings.ListByRenter(r.Context(), getUserFromContext(r).ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.writeBookings(w, r, list)
}

// listBookingsInRangeHandler godoc
//
//	@Summary	My bookings within dates
//	@Tags		bookings
//	@Produce	json
//	@Param		start	query	string	true	"YYYY-MM-DD"
//	@Param		end		query	string	true	"YYYY-MM-DD"
//	@Success	200		{array}	bookings.Booking
//	@Security	ApiKeyAuth
//	@Router		/bookings/range [get]
func (app *application) listBookingsInRangeHandler(w http.ResponseWriter, r *http.Request) {
	start, end, err := params.ParseDateRange(r.URL.Query(), "start", "end")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if end.Before(start) {
		app.badRequestResponse(w, r, rental.ErrInvalidRange)
		return
	}

	list, err := app.store.Bookings.ListInRange(r.Context(), getUserFromContext(r).ID, start, end)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.writeBookings(w, r, list)
}

// listCarBookingsHandler godoc
//
//	@Summary	Bookings of my car
//	@Tags		bookings
//	@Produce	json
//	@Param		carID	path	int	true	"Car ID"
//	@Success	200		{array}	bookings.Booking
//	@Failure	403		{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/bookings/car/{carID} [get]
func (app *application) listCarBookingsHandler(w http.ResponseWriter, r *http.Request) {
	car, err := app.ownedCar(r)
	if err != nil {
		app.paramOrDomainError(w, r, err)
		return
	}

	list, err := app.store.Bookings.ListByCar(r.Context(), car.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.writeBookings(w, r, list)
}

// writeBookings honours an optional ?status=pending|approved|rejected.
func (app *application) writeBookings(w http.ResponseWriter, r *http.Request, list []bookings.Booking) {
	if v := r.URL.Query().Get("status"); v != "" {
		status := bookings.Status(v)
		if !status.Valid() {
			app.badRequestResponse(w, r, fmt.Errorf("invalid status %q", v))
			return
		}
		list = bookings.FilterByStatus(list, status)
	}
	if list == nil {
		list = []bookings.Booking{}
	}
	if err := app.jsonResponse(w, http.StatusOK, app.rental.Decorate(list)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listPendingRequestsHandler godoc
//
//	@Summary	Requests awaiting my decision
//	@Tags		bookings
//	@Produce	json
//	@Success	200	{array}	bookings.PendingRequest
//	@Security	ApiKeyAuth
//	@Router		/bookings/owner/pending [get]
func (app *application) listPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.store.Bookings.PendingForOwner(r.Context(), getUserFromContext(r).ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if list == nil {
		list = []bookings.PendingRequest{}
	}
	for i := range list {
		list[i].Reference = app.refs.Encode(list[i].ID)
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ownerBriefHandler godoc
//
//	@Summary	Owner card
//	@Tags		bookings
//	@Produce	json
//	@Param		userID	path		int	true	"Owner ID"
//	@Success	200		{object}	users.Summary
//	@Failure	404		{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/bookings/owner/{userID}/brief [get]
func (app *application) ownerBriefHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	found, err := app.store.Users.SummariesByIDs(r.Context(), []int64{ownerID})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	brief, ok := found[ownerID]
	if !ok {
		app.notFoundResponse(w, r, fmt.Errorf("user %d not found", ownerID))
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, brief); err != nil {
		app.internalServerError(w, r, err)
	}
}

// bookingImagesHandler godoc
//
//	@Summary	Images of the booked car
//	@Tags		bookings
//	@Produce	json
//	@Param		bookingID	path	int	true	"Booking ID"
//	@Success	200			{array}	string
//	@Security	ApiKeyAuth
//	@Router		/bookings/{bookingID}/images [get]
func (app *application) bookingImagesHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := readIDParam(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	booking, err := app.rental.GetBooking(ctx, bookingID, getUserFromContext(r).ID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	car, err := app.store.Cars.GetByID(ctx, booking.CarID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	images := car.ImageURLs
	if len(images) == 0 {
		images = []string{}
		if cover := car.PrimaryImage(); cover != "" {
			images = append(images, cover)
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, images); err != nil {
		app.internalServerError(w, r, err)
	}
}

type RespondToBookingPayload struct {
	Approve bool   `json:"approve"`
	Message string `json:"message" validate:"max=500"`
}

// respondToBookingHandler godoc
//
//	@Summary		Approve or reject a request
//	@Description	Only the car owner may answer, once. The renter receives the decision with the optional message.
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			bookingID	path		int						true	"Booking ID"
//	@Param			payload		body		RespondToBookingPayload	true	"Decision"
//	@Success		200			{object}	rentnotifications.Notification
//	@Failure		404			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/bookings/{bookingID}/respond [post]
func (app *application) respondToBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := readIDParam(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload RespondToBookingPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	note, err := app.rental.RespondToBooking(r.Context(), bookingID, getUserFromContext(r).ID, payload.Approve, strings.TrimSpace(payload.Message))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, note); err != nil {
		app.internalServerError(w, r, err)
	}
}
