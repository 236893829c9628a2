// Package registry holds the named Supabase client configurations the steps
// resolve per request. Entries are immutable once built; configuration
// reloads swap the whole set.
package registry

import (
	"errors"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ecoflow-hq/supabase-auth/internal/config"
	"github.com/ecoflow-hq/supabase-auth/internal/credential"
	"github.com/ecoflow-hq/supabase-auth/internal/supabase"
	"github.com/ecoflow-hq/supabase-auth/internal/util"
)

var (
	// ErrRegistryMissing means no registry was wired up by the host.
	ErrRegistryMissing = errors.New("no client configuration registry is available")

	// ErrConfigMissing means the requested client key has no entry.
	ErrConfigMissing = errors.New("no Supabase configuration found for the given client")

	// ErrClientMissing means the entry exists but carries no live client.
	ErrClientMissing = errors.New("the Supabase client for this configuration is not initialized")
)

// Entry is one resolvable client configuration.
type Entry struct {
	// Name is the key steps select the configuration by.
	Name string

	// Label is the human-readable caption.
	Label string

	// ProjectURL is the Supabase project base URL.
	ProjectURL string

	// API is the live auth client handle. Nil when the configuration was
	// registered without usable key material.
	API supabase.AuthAPI
}

// Registry maps client keys to entries. Safe for concurrent use; Resolve
// takes a read lock, Replace swaps the set under the write lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Resolve looks up the entry registered under name. A nil registry reports
// ErrRegistryMissing so callers surface host misconfiguration uniformly.
func (r *Registry) Resolve(name string) (*Entry, error) {
	if r == nil {
		return nil, ErrRegistryMissing
	}
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrConfigMissing
	}
	if entry.API == nil {
		return nil, ErrClientMissing
	}
	return entry, nil
}

// Replace swaps the registered entries.
func (r *Registry) Replace(entries map[string]*Entry) {
	if entries == nil {
		entries = make(map[string]*Entry)
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
}

// Names returns the registered client keys, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// BuildEntries constructs registry entries from configuration, resolving
// API keys through the credential precedence chain and binding a proxy-aware
// HTTP client. Configurations without a project URL or key still get an
// entry (with a nil handle) so lookups report ErrClientMissing instead of
// ErrConfigMissing.
func BuildEntries(cfg *config.Config) map[string]*Entry {
	entries := make(map[string]*Entry, len(cfg.Clients))
	for i := range cfg.Clients {
		cc := &cfg.Clients[i]
		if cc.Name == "" {
			log.Warn("skipping Supabase client configuration without a name")
			continue
		}
		entry := &Entry{Name: cc.Name, Label: cc.Label, ProjectURL: cc.ProjectURL}
		apiKey := credential.ResolveAPIKey(cc.APIKey, cc.APIKeyFromEnv)
		if cc.ProjectURL == "" || apiKey == "" {
			log.Warnf("Supabase client %q registered without project URL or API key", cc.Name)
			entries[cc.Name] = entry
			continue
		}
		entry.API = supabase.NewClient(cc.ProjectURL, apiKey, util.NewHTTPClient(cfg.ProxyURL))
		entries[cc.Name] = entry
		log.Debugf("registered Supabase client %q for %s", cc.Name, cc.ProjectURL)
	}
	return entries
}

// Build constructs a registry from configuration.
func Build(cfg *config.Config) *Registry {
	r := New()
	r.Replace(BuildEntries(cfg))
	return r
}
