package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

const authBasePath = "/auth/v1"

var _ AuthAPI = (*Client)(nil)

// Client implements AuthAPI against a Supabase project. The standard
// operations go through the gotrue-go SDK; the OTP delivery and PKCE code
// exchange are issued as raw REST calls because the SDK surface does not
// carry the redirect target and pkce grant this plugin needs.
type Client struct {
	gotrue     gotrue.Client
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client for one project. httpClient may be nil; pass a
// proxy-aware client to route outbound calls through a configured proxy.
func NewClient(projectURL, apiKey string, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(projectURL, "/") + authBasePath
	g := gotrue.New("ecoflow", apiKey).WithCustomGoTrueURL(baseURL)
	if httpClient != nil {
		g = g.WithClient(*httpClient)
	} else {
		httpClient = &http.Client{}
	}
	return &Client{
		gotrue:     g,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// SignUp registers a new user by email or phone.
func (c *Client) SignUp(_ context.Context, params SignUpParams) (*AuthResult, error) {
	resp, err := c.gotrue.Signup(types.SignupRequest{
		Email:    params.Email,
		Phone:    params.Phone,
		Password: params.Password,
		Data:     params.Data,
	})
	if err != nil {
		return nil, wrapSDKError(err)
	}
	return normalize(resp)
}

// SignInWithPassword signs in with email+password or phone+password.
func (c *Client) SignInWithPassword(_ context.Context, email, phone, password string) (*AuthResult, error) {
	var (
		resp *types.TokenResponse
		err  error
	)
	if email != "" {
		resp, err = c.gotrue.SignInWithEmailPassword(email, password)
	} else {
		resp, err = c.gotrue.SignInWithPhonePassword(phone, password)
	}
	if err != nil {
		return nil, wrapSDKError(err)
	}
	return normalize(resp)
}

// SignInWithOTP requests delivery of a one-time password or magic link.
func (c *Client) SignInWithOTP(ctx context.Context, params OTPParams) error {
	endpoint := c.baseURL + "/otp"
	if params.RedirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(params.RedirectTo)
	}
	body := map[string]any{"create_user": params.CreateUser}
	if params.Email != "" {
		body["email"] = params.Email
	} else {
		body["phone"] = params.Phone
	}
	_, err := c.post(ctx, endpoint, body)
	return err
}

// AuthorizeURL builds the provider redirect URL for the PKCE flow.
func (c *Client) AuthorizeURL(params AuthorizeParams) (string, error) {
	if params.Provider == "" {
		return "", &APIError{Message: "missing provider"}
	}
	values := url.Values{}
	values.Set("provider", params.Provider)
	if params.RedirectTo != "" {
		values.Set("redirect_to", params.RedirectTo)
	}
	if params.CodeChallenge != "" {
		values.Set("code_challenge", params.CodeChallenge)
		values.Set("code_challenge_method", "s256")
	}
	if params.Scopes != "" {
		values.Set("scopes", params.Scopes)
	}
	return c.baseURL + "/authorize?" + values.Encode(), nil
}

// ExchangeCode trades a callback code plus PKCE verifier for a session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*AuthResult, error) {
	endpoint := c.baseURL + "/token?grant_type=pkce"
	doc, err := c.post(ctx, endpoint, map[string]any{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, err
	}
	return parseAuthResult(doc), nil
}

// RefreshSession trades a refresh token for a fresh session.
func (c *Client) RefreshSession(_ context.Context, refreshToken string) (*AuthResult, error) {
	resp, err := c.gotrue.RefreshToken(refreshToken)
	if err != nil {
		return nil, wrapSDKError(err)
	}
	return normalize(resp)
}

// UserFromToken introspects an access token.
func (c *Client) UserFromToken(_ context.Context, accessToken string) (*User, error) {
	resp, err := c.gotrue.WithToken(accessToken).GetUser()
	if err != nil {
		return nil, wrapSDKError(err)
	}
	res, err := normalize(resp)
	if err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, &APIError{Message: "no user in token response"}
	}
	return res.User, nil
}

// normalize re-encodes an SDK response and parses it into the plugin's
// session/user shapes. Going through JSON keeps one normalization path for
// SDK and raw REST responses.
func normalize(resp any) (*AuthResult, error) {
	doc, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth response: %w", err)
	}
	return parseAuthResult(doc), nil
}

func (c *Client) post(ctx context.Context, endpoint string, body map[string]any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, doc)
	}
	return doc, nil
}
