package siyuan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Kind classifies where a failed call broke down.
type Kind int

const (
	// KindTransport means the HTTP exchange failed before an envelope
	// could be interpreted (connection refused, timeout, non-2xx status).
	KindTransport Kind = iota + 1
	// KindApplication means the envelope arrived with a non-zero code.
	KindApplication
	// KindUnexpected covers everything else on the request path.
	KindUnexpected
)

// CodeNetworkError is the code reported when no status or envelope is available.
const CodeNetworkError = "NetworkError"

const unknownErrorMsg = "Unknown error"

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "Transport"
	case KindApplication:
		return "ApplicationError"
	case KindUnexpected:
		return "Unexpected"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// MarshalText renders the kind by name so it reads well in JSON error bodies.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is the single error shape returned by every Client call.
//
// Endpoint and Payload are exactly what was passed to Request, so a failing
// call can always be reproduced from the error alone.
type Error struct {
	Kind     Kind            `json:"kind"`
	Code     string          `json:"code,omitempty"`
	Message  string          `json:"message"`
	Endpoint string          `json:"endpoint"`
	Payload  Payload         `json:"payload"`
	RawData  json.RawMessage `json:"rawData,omitempty"`
	Err      error           `json:"-"`
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindApplication:
		return fmt.Sprintf("API Error (%s): %s (Code: %s)", e.Endpoint, e.Message, e.Code)
	case KindTransport:
		return fmt.Sprintf("Request Failed (%s): %s (Code: %s)", e.Endpoint, e.Message, e.Code)
	default:
		return fmt.Sprintf("Unexpected error during request (%s): %s", e.Endpoint, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IntCode returns the numeric code when there is one.
func (e *Error) IntCode() (int, bool) {
	n, err := strconv.Atoi(e.Code)
	if err != nil {
		return 0, false
	}
	return n, true
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

func applicationError(endpoint string, payload Payload, env *envelope) *Error {
	msg := env.Msg
	if msg == "" {
		msg = unknownErrorMsg
	}
	return &Error{
		Kind:     KindApplication,
		Code:     strconv.Itoa(*env.Code),
		Message:  msg,
		Endpoint: endpoint,
		Payload:  payload,
		RawData:  env.Data,
	}
}

// transportError builds a Transport error. status is 0 when no response
// arrived; env is nil when the body held no envelope.
func transportError(endpoint string, payload Payload, status int, env *envelope, body []byte, cause error) *Error {
	code := CodeNetworkError
	switch {
	case env != nil && env.Code != nil && *env.Code != 0:
		code = strconv.Itoa(*env.Code)
	case status != 0:
		code = strconv.Itoa(status)
	}

	msg := ""
	if env != nil {
		msg = env.Msg
	}
	if msg == "" && cause != nil {
		msg = cause.Error()
	}

	var raw json.RawMessage
	if json.Valid(body) {
		raw = json.RawMessage(body)
	}

	return &Error{
		Kind:     KindTransport,
		Code:     code,
		Message:  msg,
		Endpoint: endpoint,
		Payload:  payload,
		RawData:  raw,
		Err:      cause,
	}
}

func unexpectedError(endpoint string, payload Payload, cause error) *Error {
	if e, ok := AsError(cause); ok {
		return e
	}
	return &Error{
		Kind:     KindUnexpected,
		Message:  cause.Error(),
		Endpoint: endpoint,
		Payload:  payload,
		Err:      cause,
	}
}
