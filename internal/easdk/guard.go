package easdk

import (
	"log"
	"net/url"
	"strings"

	"github.com/HsiangNianian/easdk/internal/messenger"
)

// DefaultShopOrigin is used to build the redirect URL when no shop origin is
// configured.
const DefaultShopOrigin = "https://myshopify.com"

// Environment is the execution context the client runs in.
type Environment interface {
	// IsTopLevel reports whether the client is its own top-level context,
	// i.e. not nested inside a host frame.
	IsTopLevel() bool
	Location() *url.URL
	// Assign navigates the current context to rawURL.
	Assign(rawURL string)
	// Target is the host endpoint messages are posted to.
	Target() messenger.Target
}

// RedirectURL builds the host admin URL equivalent to loc.
func RedirectURL(apiKey, shopOrigin string, loc *url.URL) string {
	if shopOrigin == "" {
		shopOrigin = DefaultShopOrigin
	}
	redirect := strings.TrimSuffix(shopOrigin, "/") + "/admin/apps/"
	if apiKey == "" {
		return redirect
	}
	redirect += apiKey
	if loc == nil {
		return redirect
	}
	redirect += loc.EscapedPath()
	if loc.RawQuery != "" {
		redirect += "?" + loc.RawQuery
	}
	return redirect
}

// checkFrameRedirect reports whether it navigated away.
func checkFrameRedirect(env Environment, apiKey, shopOrigin string, forceRedirect bool, logger *log.Logger) bool {
	if !env.IsTopLevel() {
		return false
	}
	redirect := RedirectURL(apiKey, shopOrigin, env.Location())
	if forceRedirect {
		logger.Printf("frame redirect: not embedded, redirecting to %s", redirect)
		env.Assign(redirect)
		return true
	}
	logger.Printf("frame redirect warning: embedded app was not loaded in a frame and redirecting is disabled. Set forceRedirect to true and this page will redirect to: %s", redirect)
	return false
}
