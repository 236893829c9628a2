package middleware

import (
	"net/http"

	"github.com/ecoflow-hq/supabase-auth/internal/credential"
	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// RefreshSession trades a refresh token for a fresh session.
type RefreshSession struct {
	deps Deps
}

// NewRefreshSession builds the step.
func NewRefreshSession(deps Deps) *RefreshSession {
	return &RefreshSession{deps: deps}
}

// Name implements ecoflow.Step.
func (s *RefreshSession) Name() string { return "refresh-session" }

// Fields implements ecoflow.Step.
func (s *RefreshSession) Fields() []ecoflow.FieldSpec {
	return []ecoflow.FieldSpec{
		clientField(s.deps.Registry),
		{Name: "refreshToken", Label: "Refresh Token", Type: ecoflow.FieldTypeHiddenString, Required: true},
		{Name: "passByPayload", Label: "Pass token by payload", Type: ecoflow.FieldTypeCheckbox},
		{Name: "payloadKey", Label: "Payload Key", Type: ecoflow.FieldTypeString, Default: ecoflow.MsgKey},
	}
}

// Handle implements ecoflow.Step. The continuation fires only on success.
// Upstream refresh rejections report 404, matching the historical behavior
// of this step rather than the 400 of the sign-in family.
func (s *RefreshSession) Handle(c *ecoflow.Context, inputs ecoflow.Inputs, next ecoflow.Next) {
	entry, ok := resolveClient(c, inputs, s.deps.Registry)
	if !ok {
		return
	}

	refreshToken := credential.FromInputs(inputs, "refreshToken").Resolve(c.Payload)
	if refreshToken == "" {
		writeValidationError(c, "Missing refresh token.", map[string]bool{"refreshToken": true})
		return
	}

	result, err := entry.API.RefreshSession(c.Context(), refreshToken)
	if err != nil {
		writeAuthError(c, http.StatusNotFound, err)
		return
	}

	msg := map[string]any{"authenticated": true}
	if result.Session != nil {
		msg["accessToken"] = result.Session.AccessToken
		msg["refreshToken"] = result.Session.RefreshToken
		msg["session"] = result.Session
	}
	if result.User != nil {
		msg["user"] = result.User
	}
	writeSuccess(c, msg)
	next()
}
