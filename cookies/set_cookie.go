package cookies

import (
	"fmt"
	"net/http"
	"strings"
)

// SetRaw writes a verbatim Set-Cookie string into jar, keeping the attributes the server issued.
// A cookie that is already expired deletes the named cookie instead.
func SetRaw(jar Jar, raw string) error {
	c, err := http.ParseSetCookie(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("[cookies SetRaw] invalid Set-Cookie %q: %w", raw, err)
	}
	attrs := attributesOf(c)
	if attrs.expired() {
		jar.Delete(c.Name)
		return nil
	}
	jar.Set(c.Name, c.Value, attrs)
	return nil
}

// Pairs extracts the name=value pair from each Set-Cookie string, in order. Malformed entries are skipped.
func Pairs(setCookies []string) []*http.Cookie {
	pairs := make([]*http.Cookie, 0, len(setCookies))
	for _, raw := range setCookies {
		c, err := http.ParseSetCookie(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		pairs = append(pairs, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return pairs
}

// MergeHeader returns cookieHeader with every cookie in updates replacing its namesake or appended.
func MergeHeader(cookieHeader string, updates []*http.Cookie) string {
	existing, err := http.ParseCookie(cookieHeader)
	if err != nil {
		existing = nil
	}

	replaced := make(map[string]bool, len(updates))
	merged := make([]string, 0, len(existing)+len(updates))
	byName := make(map[string]*http.Cookie, len(updates))
	for _, u := range updates {
		byName[u.Name] = u
	}

	for _, c := range existing {
		if u, ok := byName[c.Name]; ok {
			if !replaced[c.Name] {
				merged = append(merged, u.Name+"="+u.Value)
				replaced[c.Name] = true
			}
			continue
		}
		merged = append(merged, c.Name+"="+c.Value)
	}
	for _, u := range updates {
		if !replaced[u.Name] {
			merged = append(merged, u.Name+"="+byName[u.Name].Value)
			replaced[u.Name] = true
		}
	}
	return strings.Join(merged, "; ")
}
