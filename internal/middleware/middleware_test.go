package middleware_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoflow-hq/supabase-auth/internal/callback"
	"github.com/ecoflow-hq/supabase-auth/internal/middleware"
	"github.com/ecoflow-hq/supabase-auth/internal/registry"
	"github.com/ecoflow-hq/supabase-auth/internal/supabase"
	"github.com/ecoflow-hq/supabase-auth/sdk/ecoflow"
)

// fakeAuth records the single call a step issues and plays back canned
// results.
type fakeAuth struct {
	authorizeURL string
	result       *supabase.AuthResult
	user         *supabase.User
	err          error

	signUpParams    *supabase.SignUpParams
	otpParams       *supabase.OTPParams
	authorizeParams *supabase.AuthorizeParams
	email           string
	phone           string
	password        string
	refreshToken    string
	token           string
}

func (f *fakeAuth) SignUp(_ context.Context, p supabase.SignUpParams) (*supabase.AuthResult, error) {
	f.signUpParams = &p
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, email, phone, password string) (*supabase.AuthResult, error) {
	f.email, f.phone, f.password = email, phone, password
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAuth) SignInWithOTP(_ context.Context, p supabase.OTPParams) error {
	f.otpParams = &p
	return f.err
}

func (f *fakeAuth) AuthorizeURL(p supabase.AuthorizeParams) (string, error) {
	f.authorizeParams = &p
	if f.err != nil {
		return "", f.err
	}
	return f.authorizeURL, nil
}

func (f *fakeAuth) ExchangeCode(_ context.Context, _, _ string) (*supabase.AuthResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAuth) RefreshSession(_ context.Context, refreshToken string) (*supabase.AuthResult, error) {
	f.refreshToken = refreshToken
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAuth) UserFromToken(_ context.Context, token string) (*supabase.User, error) {
	f.token = token
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func testDeps(t *testing.T, fake *fakeAuth) middleware.Deps {
	t.Helper()
	reg := registry.New()
	reg.Replace(map[string]*registry.Entry{
		"main": {Name: "main", Label: "Main", ProjectURL: "https://proj.supabase.co", API: fake},
	})
	flows, err := callback.OpenStore(filepath.Join(t.TempDir(), "flows.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = flows.Close() })
	return middleware.Deps{
		Registry:         reg,
		Flows:            flows,
		CallbackBasePath: "/api/auth/supabase/callback",
	}
}

func okResult() *supabase.AuthResult {
	return &supabase.AuthResult{
		Session: &supabase.Session{AccessToken: "at-1", RefreshToken: "rt-1"},
		User:    &supabase.User{ID: "u-1", Email: "a@b.com"},
	}
}

func run(step ecoflow.Step, c *ecoflow.Context, inputs ecoflow.Inputs) int {
	continued := 0
	step.Handle(c, inputs, func() { continued++ })
	return continued
}

func allSteps(deps middleware.Deps) []ecoflow.Step {
	return []ecoflow.Step{
		middleware.NewOAuthSignIn(deps),
		middleware.NewPasswordSignIn(deps),
		middleware.NewSignUp(deps),
		middleware.NewOTPSignIn(deps),
		middleware.NewRefreshSession(deps),
		middleware.NewIsAuthenticated(deps),
	}
}

func TestAllStepsRejectMissingInputs(t *testing.T) {
	deps := testDeps(t, &fakeAuth{})
	for _, step := range allSteps(deps) {
		c := ecoflow.NewContext(context.Background(), nil, nil)
		continued := run(step, c, nil)

		assert.Zero(t, continued, step.Name())
		assert.True(t, c.Payload.Get("msg.error").Bool(), step.Name())
		assert.Equal(t, "Missing inputs.", c.Payload.GetString("msg.message"), step.Name())
	}
}

func TestAllStepsRejectMissingClient(t *testing.T) {
	deps := testDeps(t, &fakeAuth{})
	for _, step := range allSteps(deps) {
		c := ecoflow.NewContext(context.Background(), nil, nil)
		continued := run(step, c, ecoflow.Inputs{"email": "a@b.com"})

		assert.Zero(t, continued, step.Name())
		assert.True(t, c.Payload.Get("msg.status.client").Bool(), step.Name())
	}
}

func TestUnknownClientReportsConfigMissing(t *testing.T) {
	deps := testDeps(t, &fakeAuth{})
	c := ecoflow.NewContext(context.Background(), nil, nil)
	step := middleware.NewPasswordSignIn(deps)

	continued := run(step, c, ecoflow.Inputs{"client": "ghost", "email": "a@b.com", "password": "pw"})

	assert.Zero(t, continued)
	assert.Equal(t, registry.ErrConfigMissing.Error(), c.Payload.GetString("msg.message"))
}

func TestPasswordSignInSuccess(t *testing.T) {
	fake := &fakeAuth{result: okResult()}
	deps := testDeps(t, fake)
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewPasswordSignIn(deps), c, ecoflow.Inputs{
		"client": "main", "email": "a@b.com", "password": "pw",
	})

	assert.Equal(t, 1, continued)
	assert.Equal(t, "a@b.com", fake.email)
	assert.Equal(t, "pw", fake.password)
	assert.True(t, c.Payload.Get("msg.success").Bool())
	assert.Equal(t, "at-1", c.Payload.GetString("msg.session.accessToken"))
	assert.Equal(t, "u-1", c.Payload.GetString("msg.user.id"))
	assert.Zero(t, c.Status())
}

func TestPasswordSignInFromPayload(t *testing.T) {
	fake := &fakeAuth{result: okResult()}
	deps := testDeps(t, fake)
	payload := ecoflow.NewPayload()
	require.NoError(t, payload.Set("msg.email", "payload@b.com"))
	require.NoError(t, payload.Set("msg.password", "payload-pw"))
	c := ecoflow.NewContext(context.Background(), nil, payload)

	continued := run(middleware.NewPasswordSignIn(deps), c, ecoflow.Inputs{
		"client": "main", "fromPayload": true, "payloadKey": "msg",
	})

	assert.Equal(t, 1, continued)
	assert.Equal(t, "payload@b.com", fake.email)
	assert.Equal(t, "payload-pw", fake.password)
}

func TestPasswordSignInMissingCredentials(t *testing.T) {
	deps := testDeps(t, &fakeAuth{})
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewPasswordSignIn(deps), c, ecoflow.Inputs{"client": "main", "email": "a@b.com"})

	assert.Zero(t, continued)
	assert.True(t, c.Payload.Get("msg.error").Bool())
	assert.False(t, c.Payload.Get("msg.status.email").Bool())
	assert.True(t, c.Payload.Get("msg.status.password").Bool())
}

func TestPasswordSignInUpstreamRejection(t *testing.T) {
	fake := &fakeAuth{err: &supabase.APIError{Message: "Invalid login credentials", StatusCode: 400}}
	deps := testDeps(t, fake)
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewPasswordSignIn(deps), c, ecoflow.Inputs{
		"client": "main", "email": "a@b.com", "password": "wrong",
	})

	assert.Zero(t, continued)
	assert.Equal(t, 400, c.Status())
	assert.True(t, c.Payload.Get("msg.error").Bool())
	assert.Equal(t, "Invalid login credentials", c.Payload.GetString("msg.message"))
}

func TestSignUpPassesUserData(t *testing.T) {
	fake := &fakeAuth{result: okResult()}
	deps := testDeps(t, fake)
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewSignUp(deps), c, ecoflow.Inputs{
		"client": "main", "email": "a@b.com", "password": "pw", "uData": `{"plan":"pro"}`,
	})

	assert.Equal(t, 1, continued)
	require.NotNil(t, fake.signUpParams)
	assert.Equal(t, "pro", fake.signUpParams.Data["plan"])
	assert.True(t, c.Payload.Get("msg.success").Bool())
}

func TestSignUpRejectsInvalidUserData(t *testing.T) {
	deps := testDeps(t, &fakeAuth{})
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewSignUp(deps), c, ecoflow.Inputs{
		"client": "main", "email": "a@b.com", "password": "pw", "uData": `{broken`,
	})

	assert.Zero(t, continued)
	assert.True(t, c.Payload.Get("msg.status.uData").Bool())
}

func TestOTPSignInUsesCustomCallback(t *testing.T) {
	fake := &fakeAuth{}
	deps := testDeps(t, fake)
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewOTPSignIn(deps), c, ecoflow.Inputs{
		"client": "main", "email": "a@b.com", "callbackURL": "https://me.example/otp-done",
	})

	assert.Equal(t, 1, continued)
	require.NotNil(t, fake.otpParams)
	assert.Equal(t, "https://me.example/otp-done", fake.otpParams.RedirectTo)
	assert.True(t, fake.otpParams.CreateUser)
	assert.True(t, c.Payload.Get("msg.success").Bool())
}

func TestOTPSignInRequiresContact(t *testing.T) {
	deps := testDeps(t, &fakeAuth{})
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewOTPSignIn(deps), c, ecoflow.Inputs{"client": "main"})

	assert.Zero(t, continued)
	assert.True(t, c.Payload.Get("msg.status.email").Bool())
	assert.True(t, c.Payload.Get("msg.status.Phone").Bool())
}

func TestOAuthSignInBuildsAuthorizeURL(t *testing.T) {
	fake := &fakeAuth{authorizeURL: "https://proj.supabase.co/auth/v1/authorize?provider=github"}
	deps := testDeps(t, fake)
	req := httptest.NewRequest("POST", "http://flows.example/run", nil)
	c := ecoflow.NewContext(context.Background(), req, nil)

	continued := run(middleware.NewOAuthSignIn(deps), c, ecoflow.Inputs{
		"client": "main", "provider": "github", "callbackURL": "https://me.example/cb",
	})

	assert.Equal(t, 1, continued)
	assert.True(t, c.Payload.Get("msg.success").Bool())
	assert.Equal(t, fake.authorizeURL, c.Payload.GetString("msg.url"))
	require.NotNil(t, fake.authorizeParams)
	assert.Equal(t, "github", fake.authorizeParams.Provider)
	assert.NotEmpty(t, fake.authorizeParams.CodeChallenge)
	// The pending-flow id rides on the redirect target.
	assert.Contains(t, fake.authorizeParams.RedirectTo, "https://me.example/cb?flow=")
}

func TestOAuthSignInRejectsUnknownProvider(t *testing.T) {
	deps := testDeps(t, &fakeAuth{})
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewOAuthSignIn(deps), c, ecoflow.Inputs{"client": "main", "provider": "myspace"})

	assert.Zero(t, continued)
	assert.True(t, c.Payload.Get("msg.status.provider").Bool())
}

func TestRefreshSessionSuccess(t *testing.T) {
	fake := &fakeAuth{result: okResult()}
	deps := testDeps(t, fake)
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewRefreshSession(deps), c, ecoflow.Inputs{
		"client": "main", "refreshToken": "rt-old",
	})

	assert.Equal(t, 1, continued)
	assert.Equal(t, "rt-old", fake.refreshToken)
	assert.True(t, c.Payload.Get("msg.authenticated").Bool())
	assert.Equal(t, "at-1", c.Payload.GetString("msg.accessToken"))
	assert.Equal(t, "rt-1", c.Payload.GetString("msg.refreshToken"))
}

func TestRefreshSessionByPayload(t *testing.T) {
	fake := &fakeAuth{result: okResult()}
	deps := testDeps(t, fake)
	payload := ecoflow.NewPayload()
	require.NoError(t, payload.Set("msg.refreshToken", "rt-payload"))
	c := ecoflow.NewContext(context.Background(), nil, payload)

	continued := run(middleware.NewRefreshSession(deps), c, ecoflow.Inputs{
		"client": "main", "passByPayload": true,
	})

	assert.Equal(t, 1, continued)
	assert.Equal(t, "rt-payload", fake.refreshToken)
}

func TestRefreshSessionUpstreamRejection(t *testing.T) {
	fake := &fakeAuth{err: &supabase.APIError{Message: "Invalid Refresh Token", StatusCode: 400}}
	deps := testDeps(t, fake)
	c := ecoflow.NewContext(context.Background(), nil, nil)

	continued := run(middleware.NewRefreshSession(deps), c, ecoflow.Inputs{
		"client": "main", "refreshToken": "rt-bad",
	})

	assert.Zero(t, continued)
	// The refresh step has always reported 404 on upstream rejection,
	// unlike the sign-in family's 400.
	assert.Equal(t, 404, c.Status())
}

func TestIsAuthenticatedMissingHeader(t *testing.T) {
	deps := testDeps(t, &fakeAuth{})
	req := httptest.NewRequest("GET", "http://flows.example/check", nil)
	c := ecoflow.NewContext(context.Background(), req, nil)

	continued := run(middleware.NewIsAuthenticated(deps), c, ecoflow.Inputs{"client": "main"})

	// The authentication check is the one step that continues the
	// pipeline on a negative outcome.
	assert.Equal(t, 1, continued)
	assert.Equal(t, 401, c.Status())
	assert.False(t, c.Payload.Get("msg.authenticated").Bool())
	assert.Equal(t, "Missing or invalid authorization token", c.Payload.GetString("msg.message"))
}

func TestIsAuthenticatedValidToken(t *testing.T) {
	fake := &fakeAuth{user: &supabase.User{ID: "u-1", Email: "a@b.com"}}
	deps := testDeps(t, fake)
	req := httptest.NewRequest("GET", "http://flows.example/check", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	c := ecoflow.NewContext(context.Background(), req, nil)

	continued := run(middleware.NewIsAuthenticated(deps), c, ecoflow.Inputs{"client": "main"})

	assert.Equal(t, 1, continued)
	assert.Equal(t, "token-1", fake.token)
	assert.True(t, c.Payload.Get("msg.authenticated").Bool())
	assert.Equal(t, "u-1", c.Payload.GetString("msg.user.id"))
	assert.Zero(t, c.Status())
}

func TestIsAuthenticatedRejectedToken(t *testing.T) {
	fake := &fakeAuth{err: &supabase.APIError{Message: "invalid JWT", StatusCode: 401}}
	deps := testDeps(t, fake)
	req := httptest.NewRequest("GET", "http://flows.example/check", nil)
	req.Header.Set("Authorization", "Bearer expired")
	c := ecoflow.NewContext(context.Background(), req, nil)

	continued := run(middleware.NewIsAuthenticated(deps), c, ecoflow.Inputs{"client": "main"})

	assert.Equal(t, 1, continued)
	assert.Equal(t, 401, c.Status())
	assert.False(t, c.Payload.Get("msg.authenticated").Bool())
	assert.Equal(t, "invalid JWT", c.Payload.GetString("msg.message"))
}
