package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Error classifications reported to clients.
const (
	ErrTypePublish         = "PublishError"
	ErrTypeInvalidResponse = "InvalidResponse"
	ErrTypeValidation      = "ValidationError"
	ErrTypeUnknownMutation = "UnknownMutation"
)

// PublishError is returned by publishers when the bus call itself fails.
// Type classifies the failure for the client.
type PublishError struct {
	Type    string
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Result is the client-visible outcome of a mutation call.
// Exactly one of Result and Error is set.
type Result struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is the client-visible error shape.
type Error struct {
	Message    string          `json:"message"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data,omitempty"`
	StatusCode int             `json:"statusCode,omitempty"`
}

// OK reports whether r carries a result.
func (r Result) OK() bool { return r.Error == nil }

// Translate maps the outcome of a publish call to the client result.
func Translate(res *PublishResult, err error) Result {
	if err != nil {
		errType := ErrTypePublish
		msg := err.Error()
		var pe *PublishError
		if errors.As(err, &pe) {
			errType = pe.Type
			msg = pe.Message
		}
		return Result{Error: &Error{Message: msg, Type: errType}}
	}

	if res == nil {
		return Result{Error: &Error{Message: "publish returned no response", Type: ErrTypeInvalidResponse}}
	}

	if res.StatusCode == http.StatusOK {
		if !json.Valid(res.Body) {
			return Result{Error: &Error{
				Message:    "publish response is not valid JSON",
				Type:       ErrTypeInvalidResponse,
				StatusCode: res.StatusCode,
			}}
		}
		return Result{Result: json.RawMessage(res.Body)}
	}

	appErr := &Error{
		Message:    string(res.Body),
		Type:       strconv.Itoa(res.StatusCode),
		StatusCode: res.StatusCode,
	}
	if json.Valid(res.Body) {
		appErr.Data = json.RawMessage(res.Body)
	}
	return Result{Error: appErr}
}
