package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind separates failures where no response arrived from responses the
// server rejected.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Error is the single failure shape surfaced by the transport. Message is
// whatever the server said and may be empty; callers render a generic
// fallback in that case.
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindNetwork:
		return fmt.Sprintf("%s %s: network failure: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same idempotent request may succeed.
func (e *Error) Retryable() bool {
	if e.Kind == KindNetwork {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func asError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsNetwork reports a failure where no response reached the client.
func IsNetwork(err error) bool {
	te, ok := asError(err)
	return ok && te.Kind == KindNetwork
}

// IsUnauthorized reports a 401 rejection.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status of a server rejection, 0 otherwise.
func StatusCode(err error) int {
	if te, ok := asError(err); ok && te.Kind == KindServer {
		return te.StatusCode
	}
	return 0
}

// Message returns the server-provided message, possibly empty.
func Message(err error) string {
	if te, ok := asError(err); ok {
		return te.Message
	}
	return ""
}

// serverMessage extracts a human message from an error body. Both
// {"message": "..."} and {"message": ["...", "..."]} are understood, with
// {"error": "..."} as a fallback.
func serverMessage(contentType string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if strings.HasPrefix(contentType, "text/plain") {
		return strings.TrimSpace(string(body))
	}
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := rawMessage(payload.Message); msg != "" {
		return msg
	}
	return rawMessage(payload.Error)
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}
