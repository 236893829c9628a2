package callback

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/ecoflow-hq/supabase-auth/internal/registry"
	"github.com/ecoflow-hq/supabase-auth/internal/supabase"
)

// Handler completes OAuth and OTP callbacks: it re-resolves the client
// configuration the sign-in step used, exchanges the one-time code for a
// session, and responds with the JSON msg envelope downstream flows read.
type Handler struct {
	registry *registry.Registry
	flows    *Store
}

// NewHandler builds a callback handler.
func NewHandler(reg *registry.Registry, flows *Store) *Handler {
	return &Handler{registry: reg, flows: flows}
}

// ForClient binds the handler to the client configuration that registered
// the route. The wrapper injects clientConfigID into the inbound query so
// the exchange re-resolves the same configuration without the browser ever
// carrying credentials.
func (h *Handler) ForClient(clientKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("clientConfigID") == "" {
			query := c.Request.URL.Query()
			query.Set("clientConfigID", clientKey)
			c.Request.URL.RawQuery = query.Encode()
		}
		h.handle(c)
	}
}

func (h *Handler) handle(c *gin.Context) {
	if desc := c.Query("error_description"); desc != "" {
		respondError(c, http.StatusBadRequest, desc, nil)
		return
	}
	code := c.Query("code")
	if code == "" {
		respondError(c, http.StatusBadRequest, "Missing code.", nil)
		return
	}

	entry, err := h.registry.Resolve(c.Query("clientConfigID"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	verifier := ""
	next := c.Query("next")
	if flowID := c.Query("flow"); flowID != "" && h.flows != nil {
		fs, errTake := h.flows.Take(flowID)
		switch {
		case errTake == nil:
			verifier = fs.Verifier
			if next == "" {
				next = fs.Next
			}
		case errors.Is(errTake, ErrFlowNotFound):
			log.Warnf("callback for unknown or expired flow %s", flowID)
		default:
			log.Errorf("failed to load flow state %s: %v", flowID, errTake)
		}
	}

	result, err := entry.API.ExchangeCode(c.Request.Context(), code, verifier)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) {
			respondError(c, http.StatusBadRequest, apiErr.Message, apiErr.Raw)
			return
		}
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	msg := gin.H{
		"success": true,
		"message": "Authentication completed successfully.",
	}
	if result.User != nil {
		msg["user"] = result.User
		msg["userMetadata"] = result.User.UserMetadata
	}
	if result.Session != nil {
		msg["session"] = result.Session
	}
	if next != "" {
		msg["redirect_url"] = next
	}
	c.JSON(http.StatusOK, gin.H{"msg": msg})
}

func respondError(c *gin.Context, status int, message string, raw any) {
	msg := gin.H{"error": true, "message": message}
	if raw != nil {
		msg["rawError"] = raw
	}
	c.JSON(status, gin.H{"msg": msg})
}
