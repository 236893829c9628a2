// Package supabase wraps the Supabase Auth (GoTrue) API behind a small
// interface the middleware steps call. The concrete client binds the
// supabase-community gotrue-go SDK for the standard operations plus raw REST
// calls for the endpoints the SDK surface does not cover, and normalizes
// every response into the Session/User shapes the steps write into the
// payload.
package supabase

import "github.com/tidwall/gjson"

// Session is the normalized token pair returned by sign-in, sign-up with
// autoconfirm, code exchange, and refresh.
type Session struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// User is the normalized Supabase user entity.
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud,omitempty"`
	Role         string         `json:"role,omitempty"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	UserMetadata map[string]any `json:"userMetadata,omitempty"`
	AppMetadata  map[string]any `json:"appMetadata,omitempty"`
	CreatedAt    string         `json:"createdAt,omitempty"`
	LastSignInAt string         `json:"lastSignInAt,omitempty"`
}

// AuthResult pairs the session and user an auth call produced. Either part
// may be nil: sign-up without autoconfirm yields a user but no session.
type AuthResult struct {
	Session *Session `json:"session,omitempty"`
	User    *User    `json:"user,omitempty"`
}

// parseAuthResult normalizes a GoTrue response document. GoTrue responses
// come in two layouts: token responses carry the session fields at the top
// level with the user nested under "user", while bare user responses are the
// user object itself. Both are handled here.
func parseAuthResult(doc []byte) *AuthResult {
	res := &AuthResult{}
	root := gjson.ParseBytes(doc)

	if tok := root.Get("access_token"); tok.Exists() && tok.String() != "" {
		res.Session = &Session{
			AccessToken:  tok.String(),
			TokenType:    root.Get("token_type").String(),
			ExpiresIn:    root.Get("expires_in").Int(),
			ExpiresAt:    root.Get("expires_at").Int(),
			RefreshToken: root.Get("refresh_token").String(),
		}
	}

	userDoc := root.Get("user")
	if !userDoc.Exists() && root.Get("id").Exists() {
		// Bare user response.
		userDoc = root
	}
	if userDoc.Exists() && userDoc.Get("id").String() != "" {
		res.User = parseUser(userDoc)
	}
	return res
}

func parseUser(doc gjson.Result) *User {
	user := &User{
		ID:           doc.Get("id").String(),
		Aud:          doc.Get("aud").String(),
		Role:         doc.Get("role").String(),
		Email:        doc.Get("email").String(),
		Phone:        doc.Get("phone").String(),
		CreatedAt:    doc.Get("created_at").String(),
		LastSignInAt: doc.Get("last_sign_in_at").String(),
	}
	if meta := doc.Get("user_metadata"); meta.IsObject() {
		user.UserMetadata = meta.Value().(map[string]any)
	}
	if meta := doc.Get("app_metadata"); meta.IsObject() {
		user.AppMetadata = meta.Value().(map[string]any)
	}
	return user
}
