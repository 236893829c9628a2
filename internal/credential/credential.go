// Package credential computes the effective value of a step's credential
// fields. A value can come from three places: the literal step input, a
// named environment variable, or a path inside the shared payload. The
// source is an explicit tagged variant so the precedence rules live in one
// place instead of per-step conditional chains.
package credential

import (
	"os"

	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// DefaultAPIKeyEnv is the conventional environment variable holding the
// Supabase API key when a configuration names no other source.
const DefaultAPIKeyEnv = "ECOFLOW_USER_SUPABASE_API_KEY"

type sourceKind int

const (
	kindLiteral sourceKind = iota
	kindEnvVar
	kindPayloadPath
)

// Source identifies where a credential value comes from.
type Source struct {
	kind sourceKind
	ref  string
}

// Literal is a value supplied directly in the step inputs.
func Literal(value string) Source {
	return Source{kind: kindLiteral, ref: value}
}

// EnvVar reads the value from the named environment variable.
func EnvVar(name string) Source {
	return Source{kind: kindEnvVar, ref: name}
}

// PayloadPath reads the value from a gjson path inside the payload.
func PayloadPath(path string) Source {
	return Source{kind: kindPayloadPath, ref: path}
}

// Resolve returns the effective value. Absent values resolve to "" rather
// than an error; required-field validation is the caller's job.
func (s Source) Resolve(payload *ecoflow.Payload) string {
	switch s.kind {
	case kindEnvVar:
		if s.ref == "" {
			return ""
		}
		return os.Getenv(s.ref)
	case kindPayloadPath:
		if payload == nil {
			return ""
		}
		return payload.GetString(s.ref)
	default:
		return s.ref
	}
}

// FromInputs selects the source for a credential field per the step's
// payload-passing flags. With fromPayload (or passByPayload) set, the value
// is read from payload[payloadKey][field]; an empty payloadKey falls back to
// the conventional msg envelope. Otherwise the literal input value is used.
func FromInputs(inputs ecoflow.Inputs, field string) Source {
	if inputs.Bool("fromPayload") || inputs.Bool("passByPayload") {
		key := inputs.String("payloadKey")
		if key == "" {
			key = ecoflow.MsgKey
		}
		return PayloadPath(key + "." + field)
	}
	return Literal(inputs.String(field))
}

// ResolveAPIKey applies the API-key precedence: an explicit literal wins;
// with fromEnv set the apiKey input names the environment variable to read;
// an absent key falls back to DefaultAPIKeyEnv.
func ResolveAPIKey(apiKey string, fromEnv bool) string {
	if apiKey == "" {
		return os.Getenv(DefaultAPIKeyEnv)
	}
	if fromEnv {
		return os.Getenv(apiKey)
	}
	return apiKey
}
