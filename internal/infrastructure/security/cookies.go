package security

import (
	"net/http"
	"time"
)

const RefreshCookieName = "refresh_token"

// cookieName returns the __Host- variant when secure, which pins the cookie
// to this host with Path=/ and Secure set.
func cookieName(secure bool) string {
	if secure {
		return "__Host-" + RefreshCookieName
	}
	return RefreshCookieName
}

func SetRefreshToken(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(secure),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func ClearRefreshToken(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(secure),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// ReadRefreshToken checks the secure variant first and falls back to the
// plain name for local dev.
func ReadRefreshToken(r *http.Request) (string, error) {
	if c, err := r.Cookie(cookieName(true)); err == nil {
		return c.Value, nil
	}
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
