package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

func TestFromInputsPayloadSource(t *testing.T) {
	payload := ecoflow.NewPayload()
	require.NoError(t, payload.Set("msg.email", "a@b.com"))

	inputs := ecoflow.Inputs{"fromPayload": true, "payloadKey": "msg", "email": "ignored@c.com"}
	assert.Equal(t, "a@b.com", FromInputs(inputs, "email").Resolve(payload))
}

func TestFromInputsLiteralSource(t *testing.T) {
	payload := ecoflow.NewPayload()
	require.NoError(t, payload.Set("msg.email", "a@b.com"))

	inputs := ecoflow.Inputs{"fromPayload": false, "email": "literal@c.com"}
	assert.Equal(t, "literal@c.com", FromInputs(inputs, "email").Resolve(payload))
}

func TestFromInputsEmptyPayloadKeyFallsBackToMsg(t *testing.T) {
	payload := ecoflow.NewPayload()
	require.NoError(t, payload.Set("msg.password", "hunter2"))

	inputs := ecoflow.Inputs{"fromPayload": true}
	assert.Equal(t, "hunter2", FromInputs(inputs, "password").Resolve(payload))
}

func TestFromInputsCustomPayloadKey(t *testing.T) {
	payload := ecoflow.NewPayload()
	require.NoError(t, payload.Set("upstream.refreshToken", "rt-1"))

	inputs := ecoflow.Inputs{"passByPayload": true, "payloadKey": "upstream"}
	assert.Equal(t, "rt-1", FromInputs(inputs, "refreshToken").Resolve(payload))
}

func TestResolveAPIKeyDefaultEnv(t *testing.T) {
	t.Setenv(DefaultAPIKeyEnv, "default-key")
	assert.Equal(t, "default-key", ResolveAPIKey("", false))
	assert.Equal(t, "default-key", ResolveAPIKey("", true))
}

func TestResolveAPIKeyNamedEnv(t *testing.T) {
	t.Setenv("ECOFLOW_USER_MY_KEY", "env-key")
	assert.Equal(t, "env-key", ResolveAPIKey("ECOFLOW_USER_MY_KEY", true))
}

func TestResolveAPIKeyLiteral(t *testing.T) {
	assert.Equal(t, "abc123", ResolveAPIKey("abc123", false))
}

func TestSourceVariants(t *testing.T) {
	t.Setenv("ECOFLOW_USER_TEST_VAR", "from-env")
	payload := ecoflow.NewPayload()
	require.NoError(t, payload.Set("a.b", "from-payload"))

	assert.Equal(t, "lit", Literal("lit").Resolve(nil))
	assert.Equal(t, "from-env", EnvVar("ECOFLOW_USER_TEST_VAR").Resolve(nil))
	assert.Equal(t, "", EnvVar("").Resolve(nil))
	assert.Equal(t, "from-payload", PayloadPath("a.b").Resolve(payload))
	assert.Equal(t, "", PayloadPath("a.b").Resolve(nil))
}
