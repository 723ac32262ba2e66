package client

import (
	"errors"
	"fmt"

	"inventory-dashboard/internal/models"
)

// ErrorKind classifies why a backend call failed
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindHTTPStatus ErrorKind = "http_status"
	KindMalformed  ErrorKind = "malformed_response"
)

var (
	ErrTransport         = errors.New("transport error")
	ErrHTTPStatus        = errors.New("unexpected HTTP status")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUploadFailed      = errors.New("upload failed")
)

// FetchError describes a failed read against the backend
type FetchError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Endpoint, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the kind sentinels
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrMalformedResponse:
		return e.Kind == KindMalformed
	}
	return false
}

// UploadError is returned by the upload operations and matches ErrUploadFailed
type UploadError struct {
	Resource   models.Resource
	StatusCode int
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	msg := fmt.Sprintf("failed to upload %s file", e.Resource)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func (e *UploadError) Is(target error) bool {
	return target == ErrUploadFailed
}

// kindOf extracts the error kind for logging and metrics
func kindOf(err error) ErrorKind {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return KindTransport
}
