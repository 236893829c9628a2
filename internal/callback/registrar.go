package callback

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// OTPFlowKey is the route segment for the OTP/magic-link callback; OAuth
// callbacks use the provider name as their segment.
const OTPFlowKey = "OTP"

// RoutePath joins the callback base path with a provider or flow key.
func RoutePath(basePath, key string) string {
	return strings.TrimRight(basePath, "/") + "/" + key
}

// Registrar registers callback routes on the host router at most once per
// path. The first OAuth/OTP step use for a given provider triggers the
// registration; later uses find the route already present. The mutex
// serializes this module's own check-then-add; host-level registration is
// idempotent by intent.
type Registrar struct {
	mu     sync.Mutex
	engine *gin.Engine
}

// NewRegistrar wraps the host router.
func NewRegistrar(engine *gin.Engine) *Registrar {
	return &Registrar{engine: engine}
}

// EnsureRoute registers handler for method+path unless such a route already
// exists. Reports whether a new route was added.
func (r *Registrar) EnsureRoute(method, path string, handler gin.HandlerFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, route := range r.engine.Routes() {
		if route.Method == method && route.Path == path {
			return false
		}
	}
	r.engine.Handle(method, path, handler)
	log.Debugf("registered callback route %s %s", method, path)
	return true
}
