package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/ecoflow-hq/supabase-auth/internal/callback"
	"github.com/ecoflow-hq/supabase-auth/internal/supabase"
	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// OAuthSignIn starts a provider OAuth flow: it builds the PKCE authorize
// URL, persists the pending flow state the callback needs for the code
// exchange, and registers the provider's callback route when no custom
// callbackURL was supplied.
type OAuthSignIn struct {
	deps Deps
}

// NewOAuthSignIn builds the step.
func NewOAuthSignIn(deps Deps) *OAuthSignIn {
	return &OAuthSignIn{deps: deps}
}

// Name implements ecoflow.Step.
func (s *OAuthSignIn) Name() string { return "oauth-signin" }

// Fields implements ecoflow.Step.
func (s *OAuthSignIn) Fields() []ecoflow.FieldSpec {
	return []ecoflow.FieldSpec{
		clientField(s.deps.Registry),
		{Name: "provider", Label: "Provider", Type: ecoflow.FieldTypeSelectPicker, Required: true, Options: supabase.Providers},
		{Name: "callbackURL", Label: "Callback URL", Type: ecoflow.FieldTypeString},
	}
}

// Handle implements ecoflow.Step. The continuation fires only on success.
func (s *OAuthSignIn) Handle(c *ecoflow.Context, inputs ecoflow.Inputs, next ecoflow.Next) {
	entry, ok := resolveClient(c, inputs, s.deps.Registry)
	if !ok {
		return
	}

	provider := inputs.String("provider")
	if provider == "" {
		writeValidationError(c, "Missing provider.", map[string]bool{"provider": true})
		return
	}
	if !supabase.IsSupportedProvider(provider) {
		writeValidationError(c, fmt.Sprintf("Unsupported provider %q.", provider), map[string]bool{"provider": true})
		return
	}

	redirectTo := inputs.String("callbackURL")
	if redirectTo == "" && s.deps.Registrar != nil {
		path := callback.RoutePath(s.deps.CallbackBasePath, provider)
		s.deps.Registrar.EnsureRoute(http.MethodGet, path, s.deps.Callbacks.ForClient(entry.Name))
		redirectTo = absoluteURL(c.Request, path)
	}

	verifier := oauth2.GenerateVerifier()
	flowID := uuid.NewString()
	if s.deps.Flows != nil {
		err := s.deps.Flows.Put(&callback.FlowState{
			ID:        flowID,
			ClientKey: entry.Name,
			Provider:  provider,
			Verifier:  verifier,
		})
		if err != nil {
			writeAuthError(c, http.StatusBadRequest, err)
			return
		}
		// The flow id rides along on the redirect target; Supabase keeps
		// existing query parameters when it appends the code.
		sep := "?"
		if strings.Contains(redirectTo, "?") {
			sep = "&"
		}
		redirectTo += sep + "flow=" + flowID
	}

	url, err := entry.API.AuthorizeURL(supabase.AuthorizeParams{
		Provider:      provider,
		RedirectTo:    redirectTo,
		CodeChallenge: oauth2.S256ChallengeFromVerifier(verifier),
	})
	if err != nil {
		writeAuthError(c, http.StatusBadRequest, err)
		return
	}

	writeSuccess(c, map[string]any{
		"success":  true,
		"provider": provider,
		"url":      url,
	})
	next()
}
