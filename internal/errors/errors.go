// Package errors is the error type the API hands back to clients: a status, a
// message and optional per-field details.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/feedsync"
)

type Error struct {
	Status  int
	Err     error // The error this wraps
	Details []Detail
}

type Detail struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s, details: %v", e.Status, e.Err, e.Details)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type transport struct {
	Message string   `json:"message"`
	Details []Detail `json:"details"`
	Status  int      `json:"status"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	msg := http.StatusText(e.Status)
	if e.Err != nil {
		msg = e.Err.Error()
	}

	return json.Marshal(transport{
		Message: msg,
		Details: e.Details,
		Status:  e.Status,
	})
}

func (e *Error) UnmarshalJSON(byts []byte) error {
	t := transport{}
	if err := json.Unmarshal(byts, &t); err != nil {
		return err
	}

	e.Err = errors.New(t.Message)
	e.Details = t.Details
	e.Status = t.Status
	return nil
}

// E builds an Error from any mix of a message or error, a status code, and details.
// The status defaults to 500.
func E(args ...any) *Error {
	ret := &Error{
		Status: http.StatusInternalServerError,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case int:
			ret.Status = arg
		case Detail:
			ret.Details = append(ret.Details, arg)
		case []Detail:
			ret.Details = append(ret.Details, arg...)
		}
	}

	return ret
}

// FromDomain picks the status for an error coming out of the core packages.
// Errors that are already an *Error are returned as is.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case errors.Is(err, cardfeed.ErrNotFound):
		return E(err, http.StatusNotFound)
	case errors.Is(err, cardfeed.ErrAccessDenied):
		return E(err, http.StatusForbidden)
	case errors.Is(err, cardfeed.ErrConflict):
		return E(err, http.StatusConflict)
	case errors.Is(err, cardfeed.ErrValidation):
		return E(err, http.StatusBadRequest)
	case errors.Is(err, feedsync.ErrFetch):
		return E(err, http.StatusBadGateway)
	case errors.Is(err, context.DeadlineExceeded):
		return E(err, http.StatusGatewayTimeout)
	default:
		// Don't leak internals to clients
		return E(http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
