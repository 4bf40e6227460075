package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	cferrs "github.com/jdholdren/cardfeed/internal/errors"
	"github.com/jdholdren/cardfeed/internal/feedsync"
)

func TestEConstructor(t *testing.T) {
	got := cferrs.E(
		"something went wrong",
		cferrs.Detail{Field: "name", Error: "was bad"},
		http.StatusBadRequest,
	)
	want := &cferrs.Error{
		Err: errors.New("something went wrong"),
		Details: []cferrs.Detail{
			{Field: "name", Error: "was bad"},
		},
		Status: http.StatusBadRequest,
	}

	assert.Equal(t, want, got)
}

func TestJSONRoundTrip(t *testing.T) {
	byts, err := json.Marshal(cferrs.E("nope", http.StatusForbidden))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"nope","details":null,"status":403}`, string(byts))

	var back cferrs.Error
	require.NoError(t, json.Unmarshal(byts, &back))
	assert.Equal(t, http.StatusForbidden, back.Status)
	assert.EqualError(t, back.Err, "nope")
}

func TestFromDomain(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: fmt.Errorf("error fetching card: %w", cardfeed.ErrNotFound), status: http.StatusNotFound},
		{err: cardfeed.ErrAccessDenied, status: http.StatusForbidden},
		{err: cardfeed.ErrConflict, status: http.StatusConflict},
		{err: fmt.Errorf("%w: bad order", cardfeed.ErrValidation), status: http.StatusBadRequest},
		{err: fmt.Errorf("%w https://example.com: timeout", feedsync.ErrFetch), status: http.StatusBadGateway},
		{err: cferrs.E("teapot", http.StatusTeapot), status: http.StatusTeapot},
		{err: errors.New("database is locked"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, cferrs.FromDomain(tt.err).Status)
		})
	}

	assert.Nil(t, cferrs.FromDomain(nil))
	assert.NotContains(t, cferrs.FromDomain(errors.New("database is locked")).Error(), "locked")
}
