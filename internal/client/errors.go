package client

import (
	"errors"
	"fmt"
	"strings"
)

// Validation failures detected locally, before any network call.
var (
	ErrEmptyCourse     = errors.New("course is required")
	ErrFileTooLarge    = errors.New("file exceeds the 50 MiB upload limit")
	ErrFileType        = errors.New("unsupported file type: upload a PDF")
	ErrNoDocuments     = errors.New("select at least one document")
	ErrNoQuestionTypes = errors.New("enable at least one question type with a count above zero")
)

// ErrStreamEnded signals a progress stream that finished without a terminal
// result. Partial progress is not success.
var ErrStreamEnded = errors.New("stream ended without a result")

// TransportError wraps a network-level failure (unreachable host, timeout,
// reset). The caller may retry manually; the client never retries on its own.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Message carries the server's own error
// text when the body had one, otherwise a generic status line.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// credentialMarkers are substrings that identify an authorization or billing
// problem in a server error message.
var credentialMarkers = []string{
	"api key",
	"unauthorized",
	"authentication",
	"invalid_api_key",
	"billing",
	"quota",
	"credential",
}

// CredentialProblem reports whether this error looks like an invalid or
// exhausted API credential rather than a generic failure. Credentials are
// never validated locally, so this is the only place they surface.
func (e *ServerError) CredentialProblem() bool {
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return true
	}
	msg := strings.ToLower(e.Message)
	for _, marker := range credentialMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
