// Package api wires the plugin into an HTTP surface: the demo host that
// executes pipeline steps over REST, the lazily registered auth callback
// routes, and the management API for editing Supabase client
// configurations.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ecoflow-hq/supabase-auth/internal/callback"
	"github.com/ecoflow-hq/supabase-auth/internal/config"
	"github.com/ecoflow-hq/supabase-auth/internal/logging"
	"github.com/ecoflow-hq/supabase-auth/internal/middleware"
	"github.com/ecoflow-hq/supabase-auth/internal/registry"
	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// Server hosts the plugin's HTTP surface.
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	cfg      *config.Config
	registry *registry.Registry
	flows    *callback.Store
	mgmt     *Management
}

// NewServer builds the server: gin engine, middleware chain, step
// registration, and routes.
func NewServer(cfg *config.Config, reg *registry.Registry, flows *callback.Store, configFilePath string) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(corsMiddleware())

	s := &Server{
		engine:   engine,
		cfg:      cfg,
		registry: reg,
		flows:    flows,
	}
	s.mgmt = NewManagement(cfg, configFilePath, s.ApplyConfig)

	// Steps register against the host-facing registry with live wiring.
	RegisterSteps(cfg, reg, flows, engine)

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}
	return s
}

// Engine exposes the router, mainly for tests and host embedding.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "EcoFlow Supabase Auth Plugin",
			"steps":   ecoflow.Registered(),
		})
	})

	v0 := s.engine.Group("/v0")
	steps := v0.Group("/steps")
	{
		steps.GET("", s.listSteps)
		steps.POST("/:name", s.runStep)
	}

	mgmt := v0.Group("/management")
	mgmt.Use(s.mgmt.Middleware())
	{
		mgmt.GET("/supabase-clients", s.mgmt.ListClients)
		mgmt.PUT("/supabase-clients", s.mgmt.PutClients)
		mgmt.PATCH("/supabase-clients", s.mgmt.PatchClient)
		mgmt.DELETE("/supabase-clients", s.mgmt.DeleteClient)
	}
}

// listSteps returns every registered step with its declared input schema.
func (s *Server) listSteps(c *gin.Context) {
	type stepInfo struct {
		Name   string              `json:"name"`
		Fields []ecoflow.FieldSpec `json:"fields"`
	}
	infos := make([]stepInfo, 0)
	for _, name := range ecoflow.Registered() {
		step, err := ecoflow.Build(name)
		if err != nil {
			log.Errorf("failed to build step %q for listing: %v", name, err)
			continue
		}
		infos = append(infos, stepInfo{Name: name, Fields: step.Fields()})
	}
	c.JSON(http.StatusOK, gin.H{"steps": infos})
}

// runStep executes one pipeline step against the supplied inputs and
// payload and returns the mutated payload plus whether the continuation
// fired. This is the demo-host stand-in for the real pipeline dispatch.
func (s *Server) runStep(c *gin.Context) {
	step, err := ecoflow.Build(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var body struct {
		Inputs  ecoflow.Inputs  `json:"inputs"`
		Payload json.RawMessage `json:"payload"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil && !errors.Is(errBind, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	payload := ecoflow.PayloadFromJSON(body.Payload)
	stepCtx := ecoflow.NewContext(c.Request.Context(), c.Request, payload)
	continued := false
	step.Handle(stepCtx, body.Inputs, func() { continued = true })

	status := stepCtx.Status()
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"continued": continued,
		"payload":   json.RawMessage(payload.JSON()),
	})
}

// RegisterSteps wires the middleware steps with their runtime dependencies.
func RegisterSteps(cfg *config.Config, reg *registry.Registry, flows *callback.Store, engine *gin.Engine) {
	middleware.RegisterAll(middleware.Deps{
		Registry:         reg,
		Registrar:        callback.NewRegistrar(engine),
		Flows:            flows,
		Callbacks:        callback.NewHandler(reg, flows),
		CallbackBasePath: cfg.CallbackBasePath,
	})
}

// ApplyConfig swaps in a reloaded configuration: the client registry is
// rebuilt and the log level follows the debug flag.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.registry.Replace(registry.BuildEntries(cfg))
	logging.SetLevel(cfg.Debug)
	s.cfg = cfg
	if s.mgmt != nil {
		s.mgmt.SetConfig(cfg)
	}
	log.Infof("configuration reloaded, %d Supabase client(s) registered", len(cfg.Clients))
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	log.Infof("listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	log.Debug("API server stopped")
	return nil
}

// requestIDMiddleware tags every request with an ID for log correlation.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("requestID", id)
		c.Next()
	}
}

// corsMiddleware adds permissive CORS headers to every response.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Management-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
