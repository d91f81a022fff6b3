package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/npezzotti/go-teamchat/internal/database"
)

// ApiError is the JSON body written for every failed request. Err carries
// the cause for logs and is never serialized.
type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func newApiError(status int, err error) *ApiError {
	return &ApiError{
		StatusCode: status,
		Message:    strings.ToLower(http.StatusText(status)),
		Err:        err,
	}
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound, nil)
}

func NewInternalServerError(err error) *ApiError {
	return newApiError(http.StatusInternalServerError, err)
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized, nil)
}

func NewServiceUnavailableError(err error) *ApiError {
	return newApiError(http.StatusServiceUnavailable, err)
}

// lookupError maps a repository lookup failure to a 404 for unknown
// records and a 500 otherwise.
func lookupError(err error) *ApiError {
	if errors.Is(err, database.ErrNotFound) {
		return NewNotFoundError()
	}
	return NewInternalServerError(err)
}

func (s *TeamChatApp) writeError(w http.ResponseWriter, e *ApiError) {
	s.writeJson(w, e.StatusCode, e)
}
