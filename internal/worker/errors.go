package worker

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	cferrs "github.com/jdholdren/cardfeed/internal/errors"
)

// Error types
//
// These are error types in the temporal sense, not the general "go" error types sense.
// They are used since between activities error types are marshaled and type information is lost.
const (
	errTypeFetch  = "fetch"
	errTypeClient = "client"
)

// Unwraps the application error from temporal into an API error if possible.
//
// Returns true if the error carried one.
func asAPIError(err error, apiErr **cferrs.Error) bool {
	if err == nil {
		return false
	}

	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.HasDetails() && appErr.Details(apiErr) == nil
}
