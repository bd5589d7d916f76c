package lookup

import (
	"errors"
	"net/http"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

// Error is returned by Service.Fetch. Kind is one of the internalerr lookup
// sentinels; Msg is safe to show to a client.
type Error struct {
	Category string
	Kind     error
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

const failedMsg = "Failed to load user agent sample."

// StatusCode maps a Fetch error onto an HTTP status: 200 for nil, 400 for an
// unknown or missing category, 500 for everything else.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-facing message for a Fetch error. Causes
// such as file paths and decode errors are left out.
func PublicMessage(err error) string {
	var le *Error
	if errors.As(err, &le) && le.Msg != "" {
		return le.Msg
	}
	return failedMsg
}
