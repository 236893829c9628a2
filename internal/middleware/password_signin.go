package middleware

import (
	"net/http"

	"github.com/ecoflow-hq/supabase-auth/internal/credential"
	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// PasswordSignIn signs a user in with email+password or phone+password.
type PasswordSignIn struct {
	deps Deps
}

// NewPasswordSignIn builds the step.
func NewPasswordSignIn(deps Deps) *PasswordSignIn {
	return &PasswordSignIn{deps: deps}
}

// Name implements ecoflow.Step.
func (s *PasswordSignIn) Name() string { return "signin-with-password" }

// Fields implements ecoflow.Step.
func (s *PasswordSignIn) Fields() []ecoflow.FieldSpec {
	fields := []ecoflow.FieldSpec{
		clientField(s.deps.Registry),
		{Name: "email", Label: "Email", Type: ecoflow.FieldTypeString},
		{Name: "Phone", Label: "Phone", Type: ecoflow.FieldTypeString},
		{Name: "password", Label: "Password", Type: ecoflow.FieldTypeHiddenString},
	}
	return append(fields, payloadFields()...)
}

// Handle implements ecoflow.Step. The continuation fires only on success.
func (s *PasswordSignIn) Handle(c *ecoflow.Context, inputs ecoflow.Inputs, next ecoflow.Next) {
	entry, ok := resolveClient(c, inputs, s.deps.Registry)
	if !ok {
		return
	}

	email := credential.FromInputs(inputs, "email").Resolve(c.Payload)
	phone := credential.FromInputs(inputs, "Phone").Resolve(c.Payload)
	password := credential.FromInputs(inputs, "password").Resolve(c.Payload)
	if (email == "" && phone == "") || password == "" {
		writeValidationError(c, "Missing email/phone or password.", map[string]bool{
			"email":    email == "",
			"Phone":    phone == "",
			"password": password == "",
		})
		return
	}

	result, err := entry.API.SignInWithPassword(c.Context(), email, phone, password)
	if err != nil {
		writeAuthError(c, http.StatusBadRequest, err)
		return
	}

	msg := map[string]any{"success": true, "message": "Signed in successfully."}
	if result.User != nil {
		msg["user"] = result.User
	}
	if result.Session != nil {
		msg["session"] = result.Session
	}
	writeSuccess(c, msg)
	next()
}
