package callback_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/ecoflow-hq/supabase-auth/internal/callback"
	"github.com/ecoflow-hq/supabase-auth/internal/registry"
	"github.com/ecoflow-hq/supabase-auth/internal/supabase"
)

type exchangeOnlyAPI struct {
	result   *supabase.AuthResult
	err      error
	code     string
	verifier string
}

func (a *exchangeOnlyAPI) SignUp(context.Context, supabase.SignUpParams) (*supabase.AuthResult, error) {
	return nil, nil
}

func (a *exchangeOnlyAPI) SignInWithPassword(context.Context, string, string, string) (*supabase.AuthResult, error) {
	return nil, nil
}

func (a *exchangeOnlyAPI) SignInWithOTP(context.Context, supabase.OTPParams) error { return nil }

func (a *exchangeOnlyAPI) AuthorizeURL(supabase.AuthorizeParams) (string, error) { return "", nil }

func (a *exchangeOnlyAPI) ExchangeCode(_ context.Context, code, verifier string) (*supabase.AuthResult, error) {
	a.code, a.verifier = code, verifier
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func (a *exchangeOnlyAPI) RefreshSession(context.Context, string) (*supabase.AuthResult, error) {
	return nil, nil
}

func (a *exchangeOnlyAPI) UserFromToken(context.Context, string) (*supabase.User, error) {
	return nil, nil
}

func openTestStore(t *testing.T) *callback.Store {
	t.Helper()
	store, err := callback.OpenStore(filepath.Join(t.TempDir(), "flows.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreTakeIsOneShot(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(&callback.FlowState{ID: "f-1", ClientKey: "main", Provider: "github", Verifier: "v-1"}))

	fs, err := store.Take("f-1")
	require.NoError(t, err)
	assert.Equal(t, "v-1", fs.Verifier)
	assert.Equal(t, "main", fs.ClientKey)

	_, err = store.Take("f-1")
	assert.ErrorIs(t, err, callback.ErrFlowNotFound)
}

func TestStoreExpiresStaleFlows(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(&callback.FlowState{
		ID:        "f-old",
		ClientKey: "main",
		CreatedAt: time.Now().Add(-11 * time.Minute),
	}))

	_, err := store.Take("f-old")
	assert.ErrorIs(t, err, callback.ErrFlowNotFound)
}

func TestStoreRejectsMissingID(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.Put(&callback.FlowState{ClientKey: "main"}))
	assert.Error(t, store.Put(nil))
}

func TestRoutePath(t *testing.T) {
	base := "/api/auth/supabase/callback"
	assert.Equal(t, base+"/github", callback.RoutePath(base, "github"))
	assert.Equal(t, base+"/OTP", callback.RoutePath(base+"/", callback.OTPFlowKey))
}

func TestEnsureRouteRegistersOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	reg := callback.NewRegistrar(engine)
	handler := func(c *gin.Context) { c.Status(http.StatusOK) }

	assert.True(t, reg.EnsureRoute(http.MethodGet, "/cb/github", handler))
	assert.False(t, reg.EnsureRoute(http.MethodGet, "/cb/github", handler))

	count := 0
	for _, route := range engine.Routes() {
		if route.Path == "/cb/github" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func newHandlerEngine(t *testing.T, api supabase.AuthAPI, store *callback.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := registry.New()
	reg.Replace(map[string]*registry.Entry{
		"main": {Name: "main", Label: "Main", API: api},
	})
	handler := callback.NewHandler(reg, store)
	engine := gin.New()
	engine.GET("/cb/github", handler.ForClient("main"))
	return engine
}

func TestHandlerExchangesCodeWithFlowState(t *testing.T) {
	api := &exchangeOnlyAPI{result: &supabase.AuthResult{
		Session: &supabase.Session{AccessToken: "at-1", RefreshToken: "rt-1"},
		User:    &supabase.User{ID: "u-1", UserMetadata: map[string]any{"name": "Ada"}},
	}}
	store := openTestStore(t)
	require.NoError(t, store.Put(&callback.FlowState{
		ID: "f-1", ClientKey: "main", Provider: "github", Verifier: "v-1", Next: "https://app.example/done",
	}))
	engine := newHandlerEngine(t, api, store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cb/github?code=abc&flow=f-1", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", api.code)
	assert.Equal(t, "v-1", api.verifier)
	body := rec.Body.String()
	assert.True(t, gjson.Get(body, "msg.success").Bool())
	assert.Equal(t, "u-1", gjson.Get(body, "msg.user.id").String())
	assert.Equal(t, "Ada", gjson.Get(body, "msg.userMetadata.name").String())
	assert.Equal(t, "at-1", gjson.Get(body, "msg.session.accessToken").String())
	assert.Equal(t, "https://app.example/done", gjson.Get(body, "msg.redirect_url").String())

	// the flow completes at most once
	_, err := store.Take("f-1")
	assert.ErrorIs(t, err, callback.ErrFlowNotFound)
}

func TestHandlerRejectsMissingCode(t *testing.T) {
	engine := newHandlerEngine(t, &exchangeOnlyAPI{}, openTestStore(t))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb/github", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.True(t, gjson.Get(body, "msg.error").Bool())
	assert.Equal(t, "Missing code.", gjson.Get(body, "msg.message").String())
}

func TestHandlerReportsProviderError(t *testing.T) {
	engine := newHandlerEngine(t, &exchangeOnlyAPI{}, openTestStore(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cb/github?error=access_denied&error_description=user+denied", nil)
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user denied", gjson.Get(rec.Body.String(), "msg.message").String())
}

func TestHandlerReportsExchangeFailure(t *testing.T) {
	api := &exchangeOnlyAPI{err: &supabase.APIError{Message: "invalid flow state", StatusCode: 404}}
	engine := newHandlerEngine(t, api, openTestStore(t))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb/github?code=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid flow state", gjson.Get(rec.Body.String(), "msg.message").String())
}
