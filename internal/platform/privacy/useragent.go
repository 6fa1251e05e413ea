package privacy

import (
	"strings"

	"github.com/mssola/useragent"
)

// ClientFamily reduces a User-Agent header to "browser/os/platform" without
// versions, or "bot" for crawlers. Empty input yields "unknown".
func ClientFamily(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}

	browser, _ := ua.Browser()
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}
	return normalizeToken(browser) + "/" + normalizeToken(ua.OS()) + "/" + platform
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
