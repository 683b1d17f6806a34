package db

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// IdentityError reports a record that carries neither a URL nor a title.
type IdentityError struct {
	Source string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("identity: record from %q has neither url nor title", e.Source)
}

// trackingQueryKeys never contribute to identity.
var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
	"si":      {},
}

// ItemID derives the stable item identifier: the hex SHA-256 of
// source + "\x00" + canonical key, where the canonical key is the
// canonicalized URL if present, else the whitespace-collapsed title.
func ItemID(source, rawURL, title string) (string, error) {
	key, err := CanonicalKey(source, rawURL, title)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(source + "\x00" + key))
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalKey returns the identity key for a record.
func CanonicalKey(source, rawURL, title string) (string, error) {
	if u := CanonicalURL(rawURL); u != "" {
		return u, nil
	}
	if t := collapseSpace(title); t != "" {
		return t, nil
	}
	return "", &IdentityError{Source: source}
}

// CanonicalURL normalizes a URL for identity. Values that do not parse as
// absolute URLs are returned trimmed.
func CanonicalURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return trimmed
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	if port := parsed.Port(); port != "" {
		defaultPort := (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443")
		if !defaultPort {
			host = host + ":" + port
		}
	}
	parsed.Host = host
	parsed.Fragment = ""
	parsed.RawFragment = ""

	if len(parsed.Path) > 1 {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		parsed.RawPath = ""
	}

	q := parsed.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, ok := trackingQueryKeys[lower]; ok {
			q.Del(key)
		}
	}
	parsed.RawQuery = q.Encode()

	return parsed.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
