package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a failed action for the views.
type Kind uint8

const (
	// KindValidation is raised by the console itself, nothing was sent.
	KindValidation Kind = iota + 1
	KindAuthorization
	KindConflict
	KindNotFound
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not found"
	case KindTransient:
		return "transient"
	}
	return "unknown"
}

const (
	MsgAccessDenied      = "Access denied — please log in with Admin/Staff role."
	MsgDeleteHasHistory  = "Cannot delete — this equipment has borrow history. Edit or archive it instead."
	MsgServerUnavailable = "Server unavailable."
	MsgSessionExpired    = "Session expired — please log in again."
)

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf returns KindTransient for errors that did not come from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// serverMessage picks the "message" or "error" field of an error body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	return strings.TrimSpace(payload.Error)
}

func fromResponse(status int, body []byte) *Error {
	msg := serverMessage(body)
	e := &Error{Status: status, Message: msg}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind, e.Message = KindAuthorization, MsgSessionExpired
	case status == http.StatusForbidden:
		e.Kind, e.Message = KindAuthorization, MsgAccessDenied
	case status == http.StatusConflict:
		e.Kind = KindConflict
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	default:
		e.Kind = KindTransient
	}
	if e.Message == "" {
		e.Message = MsgServerUnavailable
		if e.Kind != KindTransient {
			e.Message = http.StatusText(status)
		}
	}
	return e
}
