package serverutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	cferrs "github.com/jdholdren/cardfeed/internal/errors"
)

type nameReq struct {
	Name string `json:"name"`
}

func (r nameReq) Validate() error {
	if r.Name == "" {
		return cferrs.E("name is required", http.StatusBadRequest, cferrs.Detail{Field: "name", Error: "required"})
	}
	return nil
}

func TestDecodeValid(t *testing.T) {
	req, err := DecodeValid[nameReq](strings.NewReader(`{"name": "deck"}`))
	require.NoError(t, err)
	assert.Equal(t, "deck", req.Name)

	_, err = DecodeValid[nameReq](strings.NewReader(`{"name": ""}`))
	var apiErr *cferrs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	_, err = DecodeValid[nameReq](strings.NewReader(`{not json`))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestHandlerFuncE(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "ok", err: nil, status: http.StatusOK},
		{name: "api error", err: cferrs.E("nope", http.StatusTeapot), status: http.StatusTeapot, message: "nope"},
		{name: "domain error", err: fmt.Errorf("error fetching card: %w", cardfeed.ErrNotFound), status: http.StatusNotFound},
		{name: "unknown error", err: errors.New("disk on fire"), status: http.StatusInternalServerError, message: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				rec = httptest.NewRecorder()
				req = httptest.NewRequest(http.MethodGet, "/", nil)
			)
			HandlerFuncE(func(w http.ResponseWriter, r *http.Request) error {
				return tt.err
			}).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.err == nil {
				return
			}

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, float64(tt.status), body["status"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}
}

func TestAccessLogMiddleware_KeepsStatus(t *testing.T) {
	r := ErrRouter{Router: mux.NewRouter()}
	r.Use(AccessLogMiddleware)
	r.HandleFuncE("/thing", func(w http.ResponseWriter, r *http.Request) error {
		return WriteJSON(w, http.StatusCreated, map[string]string{"ok": "yes"})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thing", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}
