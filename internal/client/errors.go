package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork wraps transport failures: no response was received.
	ErrNetwork = errors.New("network error, please check your connection")
	// ErrLoggingOut rejects requests that hit 401 while a logout is running.
	ErrLoggingOut = errors.New("session is logging out")
	// ErrRefreshFailed wraps the error of a failed session refresh.
	ErrRefreshFailed = errors.New("session refresh failed")
	// ErrStale marks a list result superseded by a newer fetch.
	ErrStale = errors.New("superseded by a newer request")
)

// APIError is an envelope whose code is not one of the accepted codes.
type APIError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with code %d", e.Code)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	Status int
	// Message is what a user should see; ServerMessage is the envelope's.
	Message       string
	ServerMessage string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func newHTTPError(status int, serverMessage string) *HTTPError {
	msg := serverMessage
	switch status {
	case http.StatusForbidden:
		msg = "you do not have permission to perform this action"
	case http.StatusNotFound:
		msg = "the requested resource was not found"
	case http.StatusInternalServerError:
		msg = "server error, please try again later"
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: msg, ServerMessage: serverMessage}
}

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.Status == status
}
