package oauth

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/markbates/goth/providers/openidConnect"

	"github.com/lumenworks/frameio-relay/internal/config"
)

// Adobe IMS issues the tokens the Frame.io v2 API accepts. It speaks plain
// OIDC, so the generic provider covers it.
const adobeDiscoveryURL = "https://ims-na1.adobelogin.com/ims/.well-known/openid-configuration"

// Setup registers every provider with credentials configured and points
// gothic at a cookie-backed state store. It returns the names of the
// providers that were enabled.
func Setup(cfg config.Config) ([]string, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")

	var providers []goth.Provider
	var names []string

	if cfg.GoogleClientID != "" {
		providers = append(providers, google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			base+"/oauth/google/callback",
			"email", "profile",
		))
		names = append(names, "google")
	}

	if cfg.AdobeClientID != "" {
		adobe, err := openidConnect.New(
			cfg.AdobeClientID,
			cfg.AdobeClientSecret,
			base+"/oauth/adobe/callback",
			adobeDiscoveryURL,
			"openid", "email", "offline_access",
		)
		if err != nil {
			return nil, err
		}
		adobe.SetName("adobe")
		providers = append(providers, adobe)
		names = append(names, "adobe")
	}

	goth.UseProviders(providers...)

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.Secure = cfg.IsProduction()
	store.MaxAge(600)
	gothic.Store = store

	// gothic's default lookup reads a query parameter; our routes carry the
	// provider in the path.
	gothic.GetProviderName = func(r *http.Request) (string, error) {
		if name := r.PathValue("provider"); name != "" {
			return name, nil
		}
		return "", ErrUnknownProvider
	}

	return names, nil
}
