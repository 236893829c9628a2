package supabase

import (
	"context"
)

// SignUpParams carries the inputs of a sign-up call. Data becomes the user's
// metadata blob.
type SignUpParams struct {
	Email    string
	Phone    string
	Password string
	Data     map[string]any
}

// OTPParams carries the inputs of a one-time-password sign-in. RedirectTo is
// the callback the magic link or email OTP completes on.
type OTPParams struct {
	Email      string
	Phone      string
	CreateUser bool
	RedirectTo string
}

// AuthorizeParams carries the inputs of an OAuth authorize-URL build.
type AuthorizeParams struct {
	Provider      string
	RedirectTo    string
	CodeChallenge string
	Scopes        string
}

// AuthAPI is the slice of the Supabase Auth surface the middleware steps
// call. Each step issues at most one call per invocation. Implementations
// must be safe for concurrent use; the registry shares one handle across
// requests.
type AuthAPI interface {
	// SignUp registers a new user by email or phone.
	SignUp(ctx context.Context, params SignUpParams) (*AuthResult, error)

	// SignInWithPassword signs in with email+password or phone+password.
	// Email takes precedence when both are set.
	SignInWithPassword(ctx context.Context, email, phone, password string) (*AuthResult, error)

	// SignInWithOTP requests a one-time password / magic link delivery.
	SignInWithOTP(ctx context.Context, params OTPParams) error

	// AuthorizeURL builds the provider redirect URL for the PKCE OAuth flow.
	// No network call is issued.
	AuthorizeURL(params AuthorizeParams) (string, error)

	// ExchangeCode trades a callback code plus PKCE verifier for a session.
	ExchangeCode(ctx context.Context, code, verifier string) (*AuthResult, error)

	// RefreshSession trades a refresh token for a fresh session.
	RefreshSession(ctx context.Context, refreshToken string) (*AuthResult, error)

	// UserFromToken introspects an access token and returns its user.
	UserFromToken(ctx context.Context, accessToken string) (*User, error)
}
