package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestReadIDParam(t *testing.T) {
	cases := []struct {
		value string
		want  int64
		ok    bool
	}{
		{"42", 42, true},
		{"1", 1, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		r := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "carID", tc.value)
		id, err := readIDParam(r, "carID")
		if !tc.ok {
			var pe *paramError
			require.ErrorAs(t, err, &pe, "value %q", tc.value)
			assert.Equal(t, "invalid carID", err.Error())
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, id)
	}
}

func TestRatingValidator(t *testing.T) {
	type payload struct {
		Rating float64 `validate:"rating"`
	}

	for _, v := range []float64{0, 0.5, 3, 4.5, 5} {
		assert.NoError(t, Validate.Struct(payload{Rating: v}), "rating %v", v)
	}
	for _, v := range []float64{-1, 0.3, 4.75, 5.5} {
		assert.Error(t, Validate.Struct(payload{Rating: v}), "rating %v", v)
	}
}

func TestUsernameValidator(t *testing.T) {
	type payload struct {
		Username string `validate:"username"`
	}

	assert.NoError(t, Validate.Struct(payload{Username: "road_runner.99"}))
	assert.Error(t, Validate.Struct(payload{Username: "ab"}))
	assert.Error(t, Validate.Struct(payload{Username: "has space"}))
	assert.Error(t, Validate.Struct(payload{Username: strings.Repeat("x", 31)}))
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	assert.Error(t, readJSON(httptest.NewRecorder(), r, &dst))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, readJSON(httptest.NewRecorder(), r, &dst))
	assert.Equal(t, "a", dst.Name)
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, writeJSONError(w, http.StatusConflict, "taken"))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "taken", body["message"])
	assert.Equal(t, float64(http.StatusConflict), body["status"])
}

func TestJSONResponseEnvelope(t *testing.T) {
	app := &application{}
	w := httptest.NewRecorder()
	require.NoError(t, app.jsonResponse(w, http.StatusOK, map[string]int{"count": 3}))

	assert.JSONEq(t, `{"data":{"count":3}}`, w.Body.String())
}
