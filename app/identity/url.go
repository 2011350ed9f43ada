package identity

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are analytics and click-ID parameters dropped from every URL.
// Any parameter starting with "utm_" is dropped as well.
var trackingParams = map[string]bool{
	"fbclid":    true,
	"gclid":     true,
	"dclid":     true,
	"gclsrc":    true,
	"msclkid":   true,
	"twclid":    true,
	"ttclid":    true,
	"yclid":     true,
	"igshid":    true,
	"li_fat_id": true,
	"mc_cid":    true,
	"mc_eid":    true,
	"_hsenc":    true,
	"_hsmi":     true,
}

// feedReferralParams are only dropped when their value marks a feed referral,
// e.g. Medium's "?source=rss----f107b03c406e---4".
var feedReferralParams = map[string]bool{
	"source": true,
	"ref":    true,
	"from":   true,
}

// defaultPorts are dropped from the host for their scheme.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeURL returns the canonical form of a post URL: tracking parameters
// removed, fragment cleared, host lowercased without its default port and
// trailing slashes dropped unless the path is the bare origin.
// NormalizeURL(NormalizeURL(u)) == NormalizeURL(u).
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL is not absolute: %s", trimmed)
	}

	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); port != "" && defaultPorts[u.Scheme] == port {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}

	u.RawQuery = stripTracking(u.RawQuery)
	u.ForceQuery = false

	u.Fragment = ""
	u.RawFragment = ""

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = strings.TrimRight(u.RawPath, "/")
		if u.Path == "" {
			u.Path = "/"
			u.RawPath = ""
		}
	}

	return u.String(), nil
}

// stripTracking drops tracking pairs from a raw query. Every other pair is kept
// byte-for-byte and in order, including pairs url.ParseQuery would reject
// (semicolons, malformed escapes).
func stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	kept := make([]string, 0, strings.Count(rawQuery, "&")+1)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if isTrackingParam(unescapeQuery(key), unescapeQuery(value)) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// unescapeQuery decodes s for matching, falling back to s when it is malformed.
func unescapeQuery(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

func isTrackingParam(key, value string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "utm_") || trackingParams[lower] {
		return true
	}
	if feedReferralParams[lower] {
		v := strings.ToLower(value)
		return strings.HasPrefix(v, "rss") || strings.Contains(v, "feed")
	}
	return false
}

// Origin returns scheme://host of rawURL, or "" when rawURL is not absolute.
func Origin(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
