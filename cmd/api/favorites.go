package main

import (
	"net/http"

	"carrent/internal/domain/favorites"
)

// listFavoritesHandler godoc
//
//	@Summary	Favorite cars
//	@Tags		favorites
//	@Produce	json
//	@Success	200	{array}	favorites.Favorite
//	@Security	ApiKeyAuth
//	@Router		/favorites [get]
func (app *application) listFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.store.Favorites.List(r.Context(), getUserFromContext(r).ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if list == nil {
		list = []favorites.Favorite{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// favoriteStatusHandler godoc
//
//	@Summary	Whether a car is in the user's favorites
//	@Tags		favorites
//	@Produce	json
//	@Param		carID	path		int	true	"Car ID"
//	@Success	200		{object}	map[string]bool
//	@Security	ApiKeyAuth
//	@Router		/favorites/{carID} [get]
func (app *application) favoriteStatusHandler(w http.ResponseWriter, r *http.Request) {
	carID, err := readIDParam(r, "carID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ok, err := app.store.Favorites.IsFavorite(r.Context(), getUserFromContext(r).ID, carID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]bool{"is_favorite": ok}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// addFavoriteHandler godoc
//
//	@Summary	Add to favorites
//	@Tags		favorites
//	@Param		carID	path	int	true	"Car ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/favorites/{carID} [post]
func (app *application) addFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	carID, err := readIDParam(r, "carID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Favorites.Add(r.Context(), getUserFromContext(r).ID, carID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// removeFavoriteHandler godoc
//
//	@Summary	Remove from favorites
//	@Tags		favorites
//	@Param		carID	path	int	true	"Car ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/favorites/{carID} [delete]
func (app *application) removeFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	carID, err := readIDParam(r, "carID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Favorites.Remove(r.Context(), getUserFromContext(r).ID, carID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
