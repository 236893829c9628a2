package middleware

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/ecoflow-hq/supabase-auth/internal/supabase"
	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// writeValidationError records a caller-input problem. The status map marks
// which expected fields were missing (true = absent) for debuggability. The
// HTTP status is left untouched; validation failures are pipeline-level,
// not response-level, unless a step contract says otherwise.
func writeValidationError(c *ecoflow.Context, message string, status map[string]bool) {
	msg := map[string]any{"error": true, "message": message}
	if len(status) > 0 {
		msg["status"] = status
	}
	setMsg(c, msg)
}

// writeAuthError records an upstream rejection, carrying the raw error
// document when the API provided one, and sets the step's HTTP status.
func writeAuthError(c *ecoflow.Context, httpStatus int, err error) {
	msg := map[string]any{"error": true}
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		msg["message"] = apiErr.Message
		if apiErr.Raw != nil {
			msg["rawError"] = apiErr.Raw
		} else {
			msg["rawError"] = apiErr.Error()
		}
	} else {
		msg["message"] = err.Error()
		msg["rawError"] = err.Error()
	}
	c.SetStatus(httpStatus)
	setMsg(c, msg)
}

// writeSuccess records a step's success envelope.
func writeSuccess(c *ecoflow.Context, msg map[string]any) {
	setMsg(c, msg)
}

func setMsg(c *ecoflow.Context, msg map[string]any) {
	if err := c.Payload.SetMsg(msg); err != nil {
		log.Errorf("failed to write outcome into payload: %v", err)
	}
}
