package handler

import (
	"net/http"
	"net/url"
	"strings"
)

// Authenticator decides whether a request belongs to a logged-in user.
type Authenticator interface {
	IsAuthenticated(r *http.Request) bool
}

// CookieAuthenticator accepts any request carrying a non-empty session
// cookie. The cookie is issued and verified by the login service.
type CookieAuthenticator struct {
	Cookie string
}

func (a CookieAuthenticator) IsAuthenticated(r *http.Request) bool {
	c, err := r.Cookie(a.Cookie)
	return err == nil && c.Value != ""
}

// OriginChecker returns a check that accepts requests without an Origin
// header, requests whose Origin names the host they were sent to, and
// requests from one of allowed.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
