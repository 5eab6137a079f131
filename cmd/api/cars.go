package main

import (
	"fmt"
	"net/http"
	"strings"

	"carrent/internal/domain/cars"
	"carrent/internal/params"
	"carrent/internal/rental"
)

type CreateCarPayload struct {
	Name        string `json:"name" validate:"max=100"`
	Brand       string `json:"brand" validate:"required,max=50"`
	Model       string `json:"model" validate:"required,max=50"`
	Category    string `json:"category" validate:"max=50"`
	Year        int    `json:"year" validate:"required,min=1950,max=2100"`
	PriceCents  int64  `json:"price_cents" validate:"required,min=1"`
	Description string `json:"description" validate:"max=2000"`
	Location    string `json:"location" validate:"required,max=200"`
}

type CarListResponse struct {
	Cars       []cars.Car        `json:"cars"`
	Pagination params.Pagination `json:"pagination"`
}

// createCarHandler godoc
//
//	@Summary	List a car for rent
//	@Tags		cars
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		CreateCarPayload	true	"Car details, price per day in cents"
//	@Success	201		{object}	cars.Car
//	@Failure	400		{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/cars [post]
func (app *application) createCarHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateCarPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)
	car := &cars.Car{
		OwnerID:     user.ID,
		Name:        strings.TrimSpace(payload.Name),
		Brand:       payload.Brand,
		Model:       payload.Model,
		Category:    payload.Category,
		Year:        payload.Year,
		PriceCents:  payload.PriceCents,
		Description: payload.Description,
		Location:    payload.Location,
	}

	if err := app.store.Cars.Create(r.Context(), car); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, car); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listCarsHandler godoc
//
//	@Summary	Browse cars
//	@Tags		cars
//	@Produce	json
//	@Param		brand			query		string	false	"Brand"
//	@Param		year			query		int		false	"Model year"
//	@Param		min_price		query		int		false	"Minimum daily price in cents"
//	@Param		max_price		query		int		false	"Maximum daily price in cents"
//	@Param		search			query		string	false	"Free text"
//	@Param		location		query		string	false	"Location"
//	@Param		available_now	query		bool	false	"Only cars free today"
//	@Param		page			query		int		false	"Page"
//	@Param		limit			query		int		false	"Page size"
//	@Success	200				{object}	CarListResponse
//	@Router		/cars [get]
func (app *application) listCarsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := cars.ParseFilter(q)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	p := params.ParsePagination(q)

	list, total, err := app.store.Cars.List(r.Context(), filter, p)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)
	if list == nil {
		list = []cars.Car{}
	}

	if err := app.jsonResponse(w, http.StatusOK, CarListResponse{Cars: list, Pagination: p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// topCarsHandler godoc
//
//	@Summary	Most rented cars
//	@Tags		cars
//	@Produce	json
//	@Success	200	{array}	cars.Car
//	@Router		/cars/top [get]
func (app *application) topCarsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.store.Cars.Top(r.Context(), cars.TopLimit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if list == nil {
		list = []cars.Car{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listMyCarsHandler godoc
//
//	@Summary	My cars
//	@Tags		cars
//	@Produce	json
//	@Success	200	{array}	cars.Car
//	@Security	ApiKeyAuth
//	@Router		/cars/mine [get]
func (app *application) listMyCarsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	list, err := app.store.Cars.ListByOwner(r.Context(), user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if list == nil {
		list = []cars.Car{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getCarHandler godoc
//
//	@Summary	Car details
//	@Tags		cars
//	@Produce	json
//	@Param		carID	path		int	true	"Car ID"
//	@Success	200		{object}	cars.Car
//	@Failure	404		{object}	ErrorResponse
//	@Router		/cars/{carID} [get]
func (app *application) getCarHandler(w http.ResponseWriter, r *http.Request) {
	carID, err := readIDParam(r, "carID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	car, err := app.store.Cars.GetByID(r.Context(), carID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, car); err != nil {
		app.internalServerError(w, r, err)
	}
}

type AvailabilityResponse struct {
	CarID     int64  `json:"car_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available bool   `json:"available"`
}

// carAvailabilityHandler godoc
//
//	@Summary		Check availability
//	@Description	A car is available when no active booking shares a day with the range. Pass exclude to ignore one booking, for example when editing it.
//	@Tags			cars
//	@Produce		json
//	@Param			carID	path		int		true	"Car ID"
//	@Param			start	query		string	true	"YYYY-MM-DD"
//	@Param			end		query		string	true	"YYYY-MM-DD"
//	@Param			exclude	query		int		false	"Booking ID to ignore"
//	@Success		200		{object}	AvailabilityResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/cars/{carID}/availability [get]
func (app *application) carAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	carID, err := readIDParam(r, "carID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	q := r.URL.Query()
	start, end, err := params.ParseDateRange(q, "start", "end")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if end.Before(start) {
		app.badRequestResponse(w, r, rental.ErrInvalidRange)
		return
	}
	exclude, err := params.OptionalInt64(q, "exclude")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	exists, err := app.store.Cars.Exists(r.Context(), carID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if !exists {
		app.notFoundResponse(w, r, cars.ErrNotFound)
		return
	}

	ok, err := app.rental.IsCarAvailable(r.Context(), carID, start, end, exclude)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := AvailabilityResponse{
		CarID:     carID,
		StartDate: q.Get("start"),
		EndDate:   q.Get("end"),
		Available: ok,
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ownedCar loads the car in the URL and checks that the caller owns it.
func (app *application) ownedCar(r *http.Request) (*cars.Car, error) {
	carID, err := readIDParam(r, "carID")
	if err != nil {
		return nil, err
	}

	car, err := app.store.Cars.GetByID(r.Context(), carID)
	if err != nil {
		return nil, err
	}
	if car.OwnerID != getUserFromContext(r).ID {
		return nil, rental.ErrForbidden
	}
	return car, nil
}

// updateCarHandler godoc
//
//	@Summary	Update a car
//	@Tags		cars
//	@Accept		json
//	@Produce	json
//	@Param		carID	path		int			true	"Car ID"
//	@Param		payload	body		cars.Update	true	"Fields to change"
//	@Success	200		{object}	cars.Car
//	@Failure	403		{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/cars/{carID} [put]
func (app *application) updateCarHandler(w http.ResponseWriter, r *http.Request) {
	car, err := app.ownedCar(r)
	if err != nil {
		app.paramOrDomainError(w, r, err)
		return
	}

	var payload cars.Update
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	payload.Apply(car)
	if err := app.store.Cars.Update(r.Context(), car); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, car); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteCarHandler godoc
//
//	@Summary		Delete a car
//	@Description	Refused while the car has an active booking that has not ended.
//	@Tags			cars
//	@Param			carID	path	int	true	"Car ID"
//	@Success		204
//	@Failure		409	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/cars/{carID} [delete]
func (app *application) deleteCarHandler(w http.ResponseWriter, r *http.Request) {
	car, err := app.ownedCar(r)
	if err != nil {
		app.paramOrDomainError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := app.store.Cars.Delete(ctx, car.ID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	for _, url := range car.ImageURLs {
		app.deleteAsset(ctx, url, "image")
	}

	w.WriteHeader(http.StatusNoContent)
}

// uploadCarImagesHandler godoc
//
//	@Summary	Add car images
//	@Tags		cars
//	@Accept		mpfd
//	@Produce	json
//	@Param		carID	path		int		true	"Car ID"
//	@Param		images	formData	file	true	"Up to 10 images, 10MB total"
//	@Success	200		{object}	cars.Car
//	@Security	ApiKeyAuth
//	@Router		/cars/{carID}/images [post]
func (app *application) uploadCarImagesHandler(w http.ResponseWriter, r *http.Request) {
	car, err := app.ownedCar(r)
	if err != nil {
		app.paramOrDomainError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("unable to parse form, size limit is 10MB"))
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("no images provided"))
		return
	}

	ctx := r.Context()

	urls, err := app.uploadImages(ctx, files, folderCars, fmt.Sprintf("car_%d", car.ID))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Cars.AddImages(ctx, car.ID, urls); err != nil {
		for _, u := range urls {
			app.deleteAsset(ctx, u, "image")
		}
		app.domainErrorResponse(w, r, err)
		return
	}

	updated, err := app.store.Cars.GetByID(ctx, car.ID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

type DeleteCarImagePayload struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

// deleteCarImageHandler godoc
//
//	@Summary	Remove a car image
//	@Tags		cars
//	@Accept		json
//	@Param		carID	path	int						true	"Car ID"
//	@Param		payload	body	DeleteCarImagePayload	true	"Image to remove"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/cars/{carID}/images [delete]
func (app *application) deleteCarImageHandler(w http.ResponseWriter, r *http.Request) {
	car, err := app.ownedCar(r)
	if err != nil {
		app.paramOrDomainError(w, r, err)
		return
	}

	var payload DeleteCarImagePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()
	if err := app.store.Cars.RemoveImage(ctx, car.ID, payload.ImageURL); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	app.deleteAsset(ctx, payload.ImageURL, "image")

	w.WriteHeader(http.StatusNoContent)
}
