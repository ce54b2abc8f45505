package client

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every API response.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// AssertOK returns the payload when env.Code is one of okCodes (200 when
// none are given) and an *APIError otherwise.
func AssertOK[T any](env Envelope[T], okCodes ...int) (T, error) {
	if len(okCodes) == 0 {
		okCodes = []int{http.StatusOK}
	}
	for _, code := range okCodes {
		if env.Code == code {
			return env.Data, nil
		}
	}
	apiErr := &APIError{Code: env.Code, Message: env.Message}
	if raw, ok := any(env.Data).(json.RawMessage); ok {
		apiErr.Data = raw
	}
	var zero T
	return zero, apiErr
}
