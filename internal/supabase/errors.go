package supabase

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// APIError is an upstream rejection from the Supabase Auth API. Raw keeps
// the original error document so callers can surface it unmodified.
type APIError struct {
	StatusCode int             `json:"statusCode,omitempty"`
	Message    string          `json:"message"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("supabase auth: %s (status %d)", e.Message, e.StatusCode)
	}
	return "supabase auth: " + e.Message
}

// newAPIError extracts the human message from a GoTrue error document.
// GoTrue has used several envelope shapes over time; the known message
// fields are tried in order.
func newAPIError(statusCode int, body []byte) *APIError {
	message := ""
	root := gjson.ParseBytes(body)
	for _, field := range []string{"msg", "message", "error_description", "error"} {
		if v := root.Get(field); v.Exists() && v.String() != "" {
			message = v.String()
			break
		}
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", statusCode)
	}
	raw := json.RawMessage(nil)
	if json.Valid(body) {
		raw = json.RawMessage(body)
	}
	return &APIError{StatusCode: statusCode, Message: message, Raw: raw}
}

// wrapSDKError lifts an error returned by the gotrue-go SDK into an APIError
// so steps report a uniform shape.
func wrapSDKError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return &APIError{Message: err.Error()}
}
