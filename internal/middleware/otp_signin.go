package middleware

import (
	"net/http"

	"github.com/ecoflow-hq/supabase-auth/internal/callback"
	"github.com/ecoflow-hq/supabase-auth/internal/credential"
	"github.com/ecoflow-hq/supabase-auth/internal/supabase"
	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// OTPSignIn requests a one-time password or magic link delivery. When no
// custom callbackURL is supplied, the conventional OTP callback route is
// registered and used as the redirect target.
type OTPSignIn struct {
	deps Deps
}

// NewOTPSignIn builds the step.
func NewOTPSignIn(deps Deps) *OTPSignIn {
	return &OTPSignIn{deps: deps}
}

// Name implements ecoflow.Step.
func (s *OTPSignIn) Name() string { return "signin-with-otp" }

// Fields implements ecoflow.Step.
func (s *OTPSignIn) Fields() []ecoflow.FieldSpec {
	fields := []ecoflow.FieldSpec{
		clientField(s.deps.Registry),
		{Name: "email", Label: "Email", Type: ecoflow.FieldTypeString},
		{Name: "Phone", Label: "Phone", Type: ecoflow.FieldTypeString},
	}
	fields = append(fields, payloadFields()...)
	return append(fields, ecoflow.FieldSpec{Name: "callbackURL", Label: "Callback URL", Type: ecoflow.FieldTypeString})
}

// Handle implements ecoflow.Step. The continuation fires only on success.
func (s *OTPSignIn) Handle(c *ecoflow.Context, inputs ecoflow.Inputs, next ecoflow.Next) {
	entry, ok := resolveClient(c, inputs, s.deps.Registry)
	if !ok {
		return
	}

	email := credential.FromInputs(inputs, "email").Resolve(c.Payload)
	phone := credential.FromInputs(inputs, "Phone").Resolve(c.Payload)
	if email == "" && phone == "" {
		writeValidationError(c, "Missing email or phone.", map[string]bool{
			"email": email == "",
			"Phone": phone == "",
		})
		return
	}

	redirectTo := inputs.String("callbackURL")
	if redirectTo == "" && s.deps.Registrar != nil {
		path := callback.RoutePath(s.deps.CallbackBasePath, callback.OTPFlowKey)
		s.deps.Registrar.EnsureRoute(http.MethodGet, path, s.deps.Callbacks.ForClient(entry.Name))
		redirectTo = absoluteURL(c.Request, path)
	}

	err := entry.API.SignInWithOTP(c.Context(), supabase.OTPParams{
		Email:      email,
		Phone:      phone,
		CreateUser: true,
		RedirectTo: redirectTo,
	})
	if err != nil {
		writeAuthError(c, http.StatusBadRequest, err)
		return
	}

	writeSuccess(c, map[string]any{
		"success": true,
		"message": "OTP sent. Complete the sign-in from your inbox or device.",
	})
	next()
}
