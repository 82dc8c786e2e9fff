package api

import (
	"net/http"
	"slices"
	"strings"
)

// CSPConfig builds a Content-Security-Policy header.
type CSPConfig struct {
	DefaultSrc     []string
	FrameAncestors []string
	BaseURI        []string
	FormAction     []string
}

// APICSP forbids loading anything; API responses are data only.
var APICSP = CSPConfig{
	DefaultSrc:     []string{"'none'"},
	FrameAncestors: []string{"'none'"},
	BaseURI:        []string{"'none'"},
	FormAction:     []string{"'none'"},
}

// Header renders the policy.
func (c CSPConfig) Header() string {
	var directives []string
	add := func(name string, sources []string) {
		if len(sources) > 0 {
			directives = append(directives, name+" "+strings.Join(sources, " "))
		}
	}
	add("default-src", c.DefaultSrc)
	add("frame-ancestors", c.FrameAncestors)
	add("base-uri", c.BaseURI)
	add("form-action", c.FormAction)
	return strings.Join(directives, "; ")
}

// SecurityHeaders sets the standard hardening headers and the API CSP.
func SecurityHeaders(next http.Handler) http.Handler {
	csp := APICSP.Header()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", csp)
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware answers preflight requests and sets CORS headers. With no
// allowed origins every origin is allowed without credentials; otherwise
// only listed origins get CORS headers and other preflights are refused.
func CORSMiddleware(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(allowed) > 0 && !slices.Contains(allowed, "*") {
			if !slices.Contains(allowed, origin) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			allowOrigin = origin
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", allowOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+APIKeyHeader)
		if allowOrigin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
