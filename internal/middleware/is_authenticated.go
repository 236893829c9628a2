package middleware

import (
	"net/http"
	"strings"

	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// IsAuthenticated introspects the inbound request's bearer token against
// Supabase Auth. Unlike the other steps it invokes the continuation on both
// outcomes, signaling failure only through the 401 status and the payload;
// downstream steps are expected to branch on msg.authenticated.
type IsAuthenticated struct {
	deps Deps
}

// NewIsAuthenticated builds the step.
func NewIsAuthenticated(deps Deps) *IsAuthenticated {
	return &IsAuthenticated{deps: deps}
}

// Name implements ecoflow.Step.
func (s *IsAuthenticated) Name() string { return "is-authenticated" }

// Fields implements ecoflow.Step.
func (s *IsAuthenticated) Fields() []ecoflow.FieldSpec {
	return []ecoflow.FieldSpec{clientField(s.deps.Registry)}
}

// Handle implements ecoflow.Step.
func (s *IsAuthenticated) Handle(c *ecoflow.Context, inputs ecoflow.Inputs, next ecoflow.Next) {
	entry, ok := resolveClient(c, inputs, s.deps.Registry)
	if !ok {
		return
	}

	token := bearerToken(c.Request)
	if token == "" {
		c.SetStatus(http.StatusUnauthorized)
		writeSuccess(c, map[string]any{
			"authenticated": false,
			"message":       "Missing or invalid authorization token",
		})
		next()
		return
	}

	user, err := entry.API.UserFromToken(c.Context(), token)
	if err != nil {
		writeAuthError(c, http.StatusUnauthorized, err)
		_ = c.Payload.Set(ecoflow.MsgKey+".authenticated", false)
		next()
		return
	}

	writeSuccess(c, map[string]any{"authenticated": true, "user": user})
	next()
}

func bearerToken(req *http.Request) string {
	if req == nil {
		return ""
	}
	header := req.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
