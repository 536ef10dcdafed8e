// Package apperr is the error contract shared by the services: a small code
// vocabulary, an operation name for logs, and a message that is safe to send
// to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeUnsupportedMedia Code = "UNSUPPORTED_MEDIA"
	CodeTooLarge         Code = "TOO_LARGE"
	CodeNotFound         Code = "NOT_FOUND"
	CodeUpstream         Code = "UPSTREAM"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeTimeout          Code = "TIMEOUT"
	CodeInternal         Code = "INTERNAL"
)

// AppError is the unified error contract across layers.
type AppError struct {
	Code    Code
	Op      string // operation name, ex: "Transcriber.Transcribe"
	Message string // safe message
	Err     error  // wrapped error, logged only
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "error"
	}
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// HTTPStatus maps an error onto a response status. Errors that carry their
// own status (see StatusCarrier) win over the code table.
func HTTPStatus(err error) int {
	var sc StatusCarrier
	if errors.As(err, &sc) {
		if s := sc.HTTPStatus(); s > 0 {
			return s
		}
	}
	var ae *AppError
	if errors.As(err, &ae) {
		switch ae.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeUnsupportedMedia:
			return http.StatusUnsupportedMediaType
		case CodeTooLarge:
			return http.StatusRequestEntityTooLarge
		case CodeNotFound:
			return http.StatusNotFound
		case CodeUpstream:
			return http.StatusBadGateway
		case CodeUnavailable:
			return http.StatusServiceUnavailable
		case CodeTimeout:
			return http.StatusGatewayTimeout
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// StatusCarrier is implemented by errors that already know the HTTP status
// they must be reported with, such as a failed pipeline stage.
type StatusCarrier interface {
	error
	HTTPStatus() int
}

// PublicMessager is implemented by errors whose message is written for
// clients.
type PublicMessager interface {
	error
	PublicMessage() string
}

// SafeMessage returns the client-facing message for err. Anything that is
// neither an AppError nor a PublicMessager is redacted to the status text.
func SafeMessage(err error) string {
	var pm PublicMessager
	if errors.As(err, &pm) && pm.PublicMessage() != "" {
		return pm.PublicMessage()
	}
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return http.StatusText(HTTPStatus(err))
}
