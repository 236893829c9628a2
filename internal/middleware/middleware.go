// Package middleware implements the pipeline steps this plugin contributes:
// OAuth sign-in, password sign-in, sign-up, OTP sign-in, session refresh,
// and the authentication check. Every step follows the same skeleton:
// validate inputs, resolve the configured client, extract credentials, issue
// exactly one Supabase call, and write one normalized outcome into the
// payload's msg envelope.
package middleware

import (
	"net/http"

	"github.com/ecoflow-hq/supabase-auth/internal/callback"
	"github.com/ecoflow-hq/supabase-auth/internal/registry"
	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// Deps bundles what the steps need from the host wiring.
type Deps struct {
	// Registry resolves client configuration keys to live clients.
	Registry *registry.Registry

	// Registrar lazily registers callback routes; nil when the host runs
	// without an HTTP router (callbackURL inputs are then mandatory).
	Registrar *callback.Registrar

	// Flows persists pending OAuth flow state for the callback exchange.
	Flows *callback.Store

	// Callbacks produces the bound callback handlers the registrar mounts.
	Callbacks *callback.Handler

	// CallbackBasePath is the route prefix for registered callbacks.
	CallbackBasePath string
}

// RegisterAll registers every step factory with the host-facing registry.
func RegisterAll(deps Deps) {
	ecoflow.Register("oauth-signin", func() (ecoflow.Step, error) { return NewOAuthSignIn(deps), nil })
	ecoflow.Register("signin-with-password", func() (ecoflow.Step, error) { return NewPasswordSignIn(deps), nil })
	ecoflow.Register("signup", func() (ecoflow.Step, error) { return NewSignUp(deps), nil })
	ecoflow.Register("signin-with-otp", func() (ecoflow.Step, error) { return NewOTPSignIn(deps), nil })
	ecoflow.Register("refresh-session", func() (ecoflow.Step, error) { return NewRefreshSession(deps), nil })
	ecoflow.Register("is-authenticated", func() (ecoflow.Step, error) { return NewIsAuthenticated(deps), nil })
}

// resolveClient runs the validation prologue shared by every step: inputs
// must be present, the client key must be set, and the key must resolve to
// a registered client. On failure the outcome is already written and false
// is returned.
func resolveClient(c *ecoflow.Context, inputs ecoflow.Inputs, reg *registry.Registry) (*registry.Entry, bool) {
	if inputs.Empty() {
		writeValidationError(c, "Missing inputs.", nil)
		return nil, false
	}
	clientKey := inputs.String("client")
	if clientKey == "" {
		writeValidationError(c, "Missing client.", map[string]bool{"client": true})
		return nil, false
	}
	entry, err := reg.Resolve(clientKey)
	if err != nil {
		writeValidationError(c, err.Error(), map[string]bool{"client": true})
		return nil, false
	}
	return entry, true
}

// clientField declares the client-configuration picker every step carries.
func clientField(reg *registry.Registry) ecoflow.FieldSpec {
	return ecoflow.FieldSpec{
		Name:     "client",
		Label:    "Supabase Client",
		Type:     ecoflow.FieldTypeSelectPicker,
		Required: true,
		Options:  reg.Names(),
	}
}

// payloadFields declares the payload-passing toggles shared by the
// credential-carrying steps.
func payloadFields() []ecoflow.FieldSpec {
	return []ecoflow.FieldSpec{
		{Name: "fromPayload", Label: "Pass values by payload", Type: ecoflow.FieldTypeCheckbox},
		{Name: "payloadKey", Label: "Payload Key", Type: ecoflow.FieldTypeString, Default: ecoflow.MsgKey},
	}
}

// absoluteURL rebuilds path as an absolute URL on the inbound request's
// host so redirect targets sent to Supabase point back at this deployment.
// Without an inbound request the bare path is the best available answer.
func absoluteURL(req *http.Request, path string) string {
	if req == nil || req.Host == "" {
		return path
	}
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + req.Host + path
}
