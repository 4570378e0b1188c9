package useragent

import (
	"net"
	"net/http"
	"strings"
)

var browsers = []struct{ token, name string }{
	{"Edg/", "Edge"},
	{"Firefox/", "Firefox"},
	{"Chrome/", "Chrome"},
	{"Safari/", "Safari"},
}

var systems = []struct{ token, name string }{
	{"Android", "Android"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Windows", "Windows"},
	{"Mac OS X", "macOS"},
	{"Linux", "Linux"},
}

// Describe turns the User-Agent header into a short label such as
// "Firefox on Linux", used in connection and login logs.
func Describe(r *http.Request) string {
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		return "unknown client"
	}

	browser := "unknown browser"
	for _, b := range browsers {
		if strings.Contains(ua, b.token) {
			browser = b.name
			break
		}
	}

	os := "unknown OS"
	for _, s := range systems {
		if strings.Contains(ua, s.token) {
			os = s.name
			break
		}
	}

	return browser + " on " + os
}

// ClientIP gets the real IP address from the request
// Handles proxies and load balancers by checking X-Forwarded-For and X-Real-IP headers
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
