package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoflow-hq/supabase-auth/internal/config"
	"github.com/ecoflow-hq/supabase-auth/internal/supabase"
)

func TestResolveSentinels(t *testing.T) {
	var nilRegistry *Registry
	_, err := nilRegistry.Resolve("main")
	assert.ErrorIs(t, err, ErrRegistryMissing)

	reg := New()
	_, err = reg.Resolve("main")
	assert.ErrorIs(t, err, ErrConfigMissing)

	reg.Replace(map[string]*Entry{"main": {Name: "main"}})
	_, err = reg.Resolve("main")
	assert.ErrorIs(t, err, ErrClientMissing)

	reg.Replace(map[string]*Entry{"main": {Name: "main", API: supabase.NewClient("https://x.supabase.co", "key", nil)}})
	entry, err := reg.Resolve("main")
	require.NoError(t, err)
	assert.Equal(t, "main", entry.Name)
}

func TestBuildEntries(t *testing.T) {
	t.Setenv("ECOFLOW_USER_TEST_SUPABASE_KEY", "env-key")
	cfg := &config.Config{
		Clients: []config.SupabaseClient{
			{Name: "main", Label: "Main", ProjectURL: "https://x.supabase.co", APIKey: "literal-key"},
			{Name: "enved", ProjectURL: "https://y.supabase.co", APIKey: "ECOFLOW_USER_TEST_SUPABASE_KEY", APIKeyFromEnv: true},
			{Name: "broken", ProjectURL: ""},
			{Name: ""},
		},
	}
	entries := BuildEntries(cfg)

	require.Len(t, entries, 3)
	assert.NotNil(t, entries["main"].API)
	assert.Equal(t, "Main", entries["main"].Label)
	assert.NotNil(t, entries["enved"].API)
	assert.Nil(t, entries["broken"].API)
}

func TestNames(t *testing.T) {
	reg := New()
	reg.Replace(map[string]*Entry{"b": {Name: "b"}, "a": {Name: "a"}})
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}
