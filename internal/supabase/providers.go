package supabase

// Providers lists the OAuth providers Supabase Auth supports and the OAuth
// sign-in step offers in its provider picker.
var Providers = []string{
	"apple",
	"azure",
	"bitbucket",
	"discord",
	"facebook",
	"figma",
	"fly",
	"github",
	"gitlab",
	"google",
	"kakao",
	"keycloak",
	"linkedin",
	"linkedin_oidc",
	"notion",
	"pinterest",
	"slack",
	"spotify",
	"twitch",
	"twitter",
	"workos",
	"zoom",
}

// IsSupportedProvider reports whether name is a known OAuth provider.
func IsSupportedProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}
