// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Class groups API errors for logging.
type Class int

const (
	ClassClient Class = iota
	ClassServer
	ClassNetwork
	ClassParse
)

func (c Class) String() string {
	switch c {
	case ClassClient:
		return "client"
	case ClassServer:
		return "server"
	case ClassNetwork:
		return "network"
	case ClassParse:
		return "parse"
	default:
		return "unknown"
	}
}

// statusMessages explains common HTTP error codes of the OpenWeather API.
var statusMessages = map[int]string{
	http.StatusBadRequest:          "Bad request - check lat/lon or parameters",
	http.StatusUnauthorized:        "Invalid or missing API key",
	http.StatusForbidden:           "Account blocked / key revoked",
	http.StatusNotFound:            "Coordinates returned no data",
	http.StatusTooManyRequests:     "Rate limit exceeded",
	http.StatusInternalServerError: "OpenWeather internal error",
	http.StatusBadGateway:          "Bad gateway at OpenWeather",
	http.StatusServiceUnavailable:  "Service unavailable (maintenance)",
	http.StatusGatewayTimeout:      "Gateway timeout",
}

// APIError is returned by providers for any failed fetch. Code is the HTTP status code, or 0
// if the request did not produce a response.
type APIError struct {
	Code    int
	Message string
	Err     error
	parse   bool
}

// NewStatusError returns the error for a non-200 response. The message is taken from the
// "message" field of a JSON body, else from the table of known status codes, else the raw body.
func NewStatusError(code int, body []byte) *APIError {
	return &APIError{Code: code, Message: StatusMessage(code, body)}
}

// NewNetworkError wraps a failure to reach the API.
func NewNetworkError(err error) *APIError {
	return &APIError{Message: fmt.Sprintf("Network error: %s", err), Err: err}
}

// NewParseError wraps a response body that could not be decoded.
func NewParseError(code int, err error) *APIError {
	return &APIError{Code: code, Message: fmt.Sprintf("Invalid response: %s", err), Err: err, parse: true}
}

// StatusMessage returns the human readable message for a failed response.
func StatusMessage(code int, body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg, ok := payload["message"].(string); ok {
			return msg
		}
	}
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return strings.TrimSpace(string(body))
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Class returns the error class.
func (e *APIError) Class() Class {
	switch {
	case e.parse:
		return ClassParse
	case e.Code == 0:
		return ClassNetwork
	case e.Code >= 500:
		return ClassServer
	default:
		return ClassClient
	}
}

// IsAuth reports whether the API rejected the credentials.
func (e *APIError) IsAuth() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// IsRateLimit reports whether the API rate limit was hit.
func (e *APIError) IsRateLimit() bool {
	return e.Code == http.StatusTooManyRequests
}

// IsNotFound reports whether the API had no data for the request.
func (e *APIError) IsNotFound() bool {
	return e.Code == http.StatusNotFound
}

// AsAPIError converts any error into an *APIError. Errors that are not API errors are
// treated as network errors.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewNetworkError(err)
}
