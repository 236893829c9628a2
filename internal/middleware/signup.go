package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/ecoflow-hq/supabase-auth/internal/credential"
	"github.com/ecoflow-hq/supabase-auth/internal/supabase"
	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// SignUp registers a new user by email or phone, optionally attaching a
// user-metadata blob.
type SignUp struct {
	deps Deps
}

// NewSignUp builds the step.
func NewSignUp(deps Deps) *SignUp {
	return &SignUp{deps: deps}
}

// Name implements ecoflow.Step.
func (s *SignUp) Name() string { return "signup" }

// Fields implements ecoflow.Step.
func (s *SignUp) Fields() []ecoflow.FieldSpec {
	fields := []ecoflow.FieldSpec{
		clientField(s.deps.Registry),
		{Name: "email", Label: "Email", Type: ecoflow.FieldTypeString},
		{Name: "Phone", Label: "Phone", Type: ecoflow.FieldTypeString},
		{Name: "password", Label: "Password", Type: ecoflow.FieldTypeHiddenString},
		{Name: "uData", Label: "User Data", Type: ecoflow.FieldTypeCodeBlock, Placeholder: "{}"},
	}
	return append(fields, payloadFields()...)
}

// Handle implements ecoflow.Step. The continuation fires only on success.
func (s *SignUp) Handle(c *ecoflow.Context, inputs ecoflow.Inputs, next ecoflow.Next) {
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

	var userData map[string]any
	if uData := credential.FromInputs(inputs, "uData").Resolve(c.Payload); uData != "" {
		if err := json.Unmarshal([]byte(uData), &userData); err != nil {
			writeValidationError(c, "Invalid user data JSON.", map[string]bool{"uData": true})
			return
		}
	}

	result, err := entry.API.SignUp(c.Context(), supabase.SignUpParams{
		Email:    email,
		Phone:    phone,
		Password: password,
		Data:     userData,
	})
	if err != nil {
		writeAuthError(c, http.StatusBadRequest, err)
		return
	}

	msg := map[string]any{"success": true, "message": "Signed up successfully."}
	if result.User != nil {
		msg["user"] = result.User
	}
	if result.Session != nil {
		msg["session"] = result.Session
	}
	writeSuccess(c, msg)
	next()
}
