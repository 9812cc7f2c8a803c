package httpapi

import (
	"net/http"
	"time"
)

func (a *API) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     a.cookies.Path,
		Domain:   a.cookies.Domain,
		HttpOnly: httpOnly,
		Secure:   a.cookies.Secure,
		SameSite: a.cookies.SameSite,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
		c.Expires = time.Now().Add(ttl)
	} else {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	}
	return c
}

// setSessionCookies sets the access and refresh tokens as HttpOnly cookies
// and the CSRF token as a cookie readable by page script.
func (a *API) setSessionCookies(w http.ResponseWriter, access, refresh, csrf string) {
	http.SetCookie(w, a.cookie(a.cookies.AccessName, access, a.accessTTL, true))
	http.SetCookie(w, a.cookie(a.cookies.RefreshName, refresh, a.refreshTTL, true))
	http.SetCookie(w, a.cookie(a.cookies.CSRFName, csrf, a.accessTTL, false))
}

func (a *API) setAccessCookies(w http.ResponseWriter, access, csrf string) {
	http.SetCookie(w, a.cookie(a.cookies.AccessName, access, a.accessTTL, true))
	http.SetCookie(w, a.cookie(a.cookies.CSRFName, csrf, a.accessTTL, false))
}

func (a *API) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, a.cookie(a.cookies.AccessName, "", 0, true))
	http.SetCookie(w, a.cookie(a.cookies.RefreshName, "", 0, true))
	http.SetCookie(w, a.cookie(a.cookies.CSRFName, "", 0, false))
}
