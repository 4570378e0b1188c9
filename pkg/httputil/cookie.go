package httputil

import (
	"errors"
	"net/http"
	"strings"
)

const (
	RefreshCookieName    = "refresh_token"
	OAuthStateCookieName = "oauth_state"
)

// SetRefreshCookie stores the refresh token in an HttpOnly cookie.
func SetRefreshCookie(w http.ResponseWriter, token string, secure bool) {
	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
	}

	// SameSite=None requires Secure=true, so use Lax for development
	if secure {
		cookie.SameSite = http.SameSiteNoneMode
	} else {
		cookie.SameSite = http.SameSiteLaxMode
	}

	http.SetCookie(w, cookie)
}

func ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// SetStateCookie stores the OAuth state for the callback to compare against.
func SetStateCookie(w http.ResponseWriter, state string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     OAuthStateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetCookie returns a non-empty cookie value.
func GetCookie(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", errors.New(name + " cookie not found")
	}
	if cookie.Value == "" {
		return "", errors.New(name + " cookie is empty")
	}
	return cookie.Value, nil
}

// GetBearerToken extracts the token from an "Authorization: Bearer <token>" header.
func GetBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("no authorization header")
	}
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:]), nil
	}
	return "", errors.New("authorization header is not a bearer token")
}

// GetTokenFromRequest prefers the Authorization header and falls back to the
// "token" query parameter, which is the only option for WebSocket handshakes
// from browsers.
func GetTokenFromRequest(r *http.Request) (string, error) {
	token, err := GetBearerToken(r)
	if err == nil && token != "" {
		return token, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	return "", errors.New("no auth token found in header or query")
}
