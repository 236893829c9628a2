package api

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecoflow-hq/supabase-auth/internal/config"
	"github.com/ecoflow-hq/supabase-auth/internal/credential"
)

// Management exposes the configuration surface: listing and editing the
// registered Supabase client configurations, persisted back to the YAML
// config file.
type Management struct {
	mu             sync.Mutex
	cfg            *config.Config
	configFilePath string
	onChange       func(*config.Config)
}

// NewManagement builds the management handler. onChange runs after every
// persisted mutation so the server can rebuild its registry.
func NewManagement(cfg *config.Config, configFilePath string, onChange func(*config.Config)) *Management {
	return &Management{cfg: cfg, configFilePath: configFilePath, onChange: onChange}
}

// SetConfig updates the in-memory config reference on hot reload.
func (m *Management) SetConfig(cfg *config.Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Middleware enforces access control for management endpoints. All requests
// require the configured secret key (Bearer or X-Management-Key, plaintext
// or bcrypt hash); remote clients additionally require allow-remote.
func (m *Management) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		local := clientIP == "127.0.0.1" || clientIP == "::1"

		m.mu.Lock()
		rm := m.cfg.RemoteManagement
		m.mu.Unlock()

		if !local && !rm.AllowRemote {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "remote management disabled"})
			return
		}
		if rm.SecretKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "management key not set"})
			return
		}

		provided := c.GetHeader("X-Management-Key")
		if provided == "" {
			parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				provided = parts[1]
			}
		}
		if !keyMatches(rm.SecretKey, provided) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid management key"})
			return
		}
		c.Next()
	}
}

// keyMatches accepts either a plaintext comparison or a bcrypt hash stored
// in the config.
func keyMatches(stored, provided string) bool {
	if provided == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(provided)) == nil
	}
	return stored == provided
}

// clientDTO is the wire form of a Supabase client configuration. API keys
// are never echoed back; KeySet reports whether one is configured.
type clientDTO struct {
	Name          string `json:"name"`
	Label         string `json:"label,omitempty"`
	ProjectURL    string `json:"projectURL"`
	APIKey        string `json:"apiKey,omitempty"`
	APIKeyFromEnv bool   `json:"apiKeyFromEnv,omitempty"`
	KeySet        bool   `json:"keySet,omitempty"`
}

// ListClients returns the registered client configurations, keys redacted.
func (m *Management) ListClients(c *gin.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]clientDTO, 0, len(m.cfg.Clients))
	for _, cc := range m.cfg.Clients {
		out = append(out, clientDTO{
			Name:          cc.Name,
			Label:         cc.Label,
			ProjectURL:    cc.ProjectURL,
			APIKeyFromEnv: cc.APIKeyFromEnv,
			KeySet:        credential.ResolveAPIKey(cc.APIKey, cc.APIKeyFromEnv) != "",
		})
	}
	c.JSON(http.StatusOK, gin.H{"supabase-clients": out})
}

// PutClients replaces the whole client configuration list.
func (m *Management) PutClients(c *gin.Context) {
	var incoming []clientDTO
	if err := c.ShouldBindJSON(&incoming); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	clients := make([]config.SupabaseClient, 0, len(incoming))
	for _, dto := range incoming {
		if dto.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "client name is required"})
			return
		}
		clients = append(clients, dtoToConfig(dto))
	}
	m.cfg.Clients = clients
	m.persist(c)
}

// PatchClient upserts one client configuration by name.
func (m *Management) PatchClient(c *gin.Context) {
	var dto clientDTO
	if err := c.ShouldBindJSON(&dto); err != nil || dto.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := false
	for i := range m.cfg.Clients {
		if m.cfg.Clients[i].Name == dto.Name {
			m.cfg.Clients[i] = dtoToConfig(dto)
			updated = true
			break
		}
	}
	if !updated {
		m.cfg.Clients = append(m.cfg.Clients, dtoToConfig(dto))
	}
	m.persist(c)
}

// DeleteClient removes the client configuration named by the query.
func (m *Management) DeleteClient(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter is required"})
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.cfg.Clients[:0]
	found := false
	for _, cc := range m.cfg.Clients {
		if cc.Name == name {
			found = true
			continue
		}
		kept = append(kept, cc)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such client"})
		return
	}
	m.cfg.Clients = kept
	m.persist(c)
}

func dtoToConfig(dto clientDTO) config.SupabaseClient {
	return config.SupabaseClient{
		Name:          dto.Name,
		Label:         dto.Label,
		ProjectURL:    dto.ProjectURL,
		APIKey:        dto.APIKey,
		APIKeyFromEnv: dto.APIKeyFromEnv,
	}
}

// persist writes the config file and notifies the server. Callers hold the
// mutex.
func (m *Management) persist(c *gin.Context) {
	if err := config.SaveConfig(m.cfg, m.configFilePath); err != nil {
		log.Errorf("failed to persist config: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist config"})
		return
	}
	if m.onChange != nil {
		m.onChange(m.cfg)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
