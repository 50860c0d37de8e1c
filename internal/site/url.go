package site

import (
	"net/url"
	"strings"
)

const maxURLLength = 2048

// NormalizeRootURL validates and canonicalizes a user-supplied site URL
// so that equivalent inputs map to one canonical root before uniqueness
// is checked. It lowercases the scheme and host, removes default ports,
// drops the fragment, sorts query parameters, and strips trailing
// slashes from the path. The result is idempotent under re-normalization.
func NormalizeRootURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &InputError{Field: "url", Reason: "must not be empty"}
	}
	if len(raw) > maxURLLength {
		return "", &InputError{Field: "url", Reason: "too long"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &InputError{Field: "url", Reason: "not a parseable URL"}
	}
	return normalize(u)
}

// NormalizeLink resolves href against base and canonicalizes it the same
// way as NormalizeRootURL. It rejects non-http(s) targets.
func NormalizeLink(href, base string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", &InputError{Field: "url", Reason: "not a parseable URL"}
	}
	u, err := b.Parse(href)
	if err != nil {
		return "", &InputError{Field: "url", Reason: "not a parseable URL"}
	}
	return normalize(u)
}

func normalize(u *url.URL) (string, error) {
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &InputError{Field: "url", Reason: "scheme must be http or https"}
	}
	u.Host = strings.ToLower(u.Host)
	if u.Hostname() == "" {
		return "", &InputError{Field: "url", Reason: "host must not be empty"}
	}

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")

	// Re-encode sorts query parameters for a stable representation.
	u.RawQuery = u.Query().Encode()

	return u.String(), nil
}

// Origin returns the scheme://host part of an absolute URL.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// SameSite reports whether rawURL belongs to the given origin.
func SameSite(rawURL, origin string) bool {
	return origin != "" && Origin(rawURL) == origin
}
