// Package security provides the HTTP security policy of the theme server:
// Content Security Policy, HTTP Strict Transport Security, the classic
// hardening headers and origin validation for cross-origin and WebSocket
// requests.
//
// Policies are picked per environment. Development relaxes framing and
// connection sources so the live reload socket works from any local port;
// production adds HSTS preload and upgrades insecure requests.
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Environments with a dedicated policy.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Directive is one Content-Security-Policy directive. A directive without
// sources, such as upgrade-insecure-requests, is emitted bare.
type Directive struct {
	Name    string
	Sources []string
}

// CSP is a Content-Security-Policy in emission order.
type CSP []Directive

// Set replaces the sources of the named directive, appending it when absent.
func (c CSP) Set(name string, sources ...string) CSP {
	for i := range c {
		if c[i].Name == name {
			c[i].Sources = sources
			return c
		}
	}
	return append(c, Directive{Name: name, Sources: sources})
}

// Sources returns the sources of the named directive.
func (c CSP) Sources(name string) []string {
	for _, d := range c {
		if d.Name == name {
			return d.Sources
		}
	}
	return nil
}

// String serializes the policy into a header value.
func (c CSP) String() string {
	parts := make([]string, 0, len(c))
	for _, d := range c {
		if len(d.Sources) == 0 {
			parts = append(parts, d.Name)
			continue
		}
		parts = append(parts, d.Name+" "+strings.Join(d.Sources, " "))
	}
	return strings.Join(parts, "; ")
}

// HSTS configures the Strict-Transport-Security header.
type HSTS struct {
	MaxAge            time.Duration
	IncludeSubDomains bool
	Preload           bool
}

// String serializes the HSTS header value.
func (h HSTS) String() string {
	value := fmt.Sprintf("max-age=%d", int64(h.MaxAge/time.Second))
	if h.IncludeSubDomains {
		value += "; includeSubDomains"
	}
	if h.Preload {
		value += "; preload"
	}
	return value
}

// Policy holds the security headers of every response and the origins
// allowed for CORS and live reload connections.
type Policy struct {
	Environment string
	CSP         CSP
	// HSTS is only sent over TLS; nil omits it.
	HSTS           *HSTS
	FrameOptions   string
	NoSniff        bool
	ReferrerPolicy string
	AllowedOrigins AllowList
}

// basePolicy is the strict policy every environment starts from. Inline
// styles and scripts stay allowed because the theme emits head tags inline.
func basePolicy(environment string) *Policy {
	return &Policy{
		Environment: environment,
		CSP: CSP{
			{Name: "default-src", Sources: []string{"'self'"}},
			{Name: "script-src", Sources: []string{"'self'", "'unsafe-inline'"}},
			{Name: "style-src", Sources: []string{"'self'", "'unsafe-inline'"}},
			{Name: "img-src", Sources: []string{"'self'", "data:"}},
			{Name: "connect-src", Sources: []string{"'self'", "ws:", "wss:"}},
			{Name: "object-src", Sources: []string{"'none'"}},
			{Name: "frame-ancestors", Sources: []string{"'none'"}},
			{Name: "base-uri", Sources: []string{"'self'"}},
		},
		HSTS:           &HSTS{MaxAge: 365 * 24 * time.Hour, IncludeSubDomains: true},
		FrameOptions:   "DENY",
		NoSniff:        true,
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}
}

// ForEnvironment returns the policy of environment with allowed appended to
// its allowed origins. Unknown environments get the strict base policy.
func ForEnvironment(environment string, allowed []string) *Policy {
	p := basePolicy(environment)

	switch environment {
	case EnvDevelopment:
		p.FrameOptions = "SAMEORIGIN"
		p.CSP = p.CSP.Set("frame-ancestors", "'self'")
		p.HSTS = nil
		p.AllowedOrigins = AllowList{"http://localhost:8080", "http://127.0.0.1:8080"}
	case EnvProduction:
		p.CSP = p.CSP.Set("connect-src", "'self'", "wss:").Set("upgrade-insecure-requests")
		p.HSTS.Preload = true
	}

	p.AllowedOrigins = append(p.AllowedOrigins, allowed...)
	return p
}

// Apply writes the policy headers into h. HSTS is only written for secure
// connections.
func (p *Policy) Apply(h http.Header, secure bool) {
	if len(p.CSP) > 0 {
		h.Set("Content-Security-Policy", p.CSP.String())
	}
	if p.HSTS != nil && secure {
		h.Set("Strict-Transport-Security", p.HSTS.String())
	}
	if p.FrameOptions != "" {
		h.Set("X-Frame-Options", p.FrameOptions)
	}
	if p.NoSniff {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	if p.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", p.ReferrerPolicy)
	}
}

// Middleware applies the policy headers before next runs.
func (p *Policy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.Apply(w.Header(), r.TLS != nil)
		next.ServeHTTP(w, r)
	})
}

// OriginValidator validates the origin of cross-origin and WebSocket requests.
type OriginValidator interface {
	ValidateOrigin(origin string) bool
}

// AllowList accepts the listed origins; "*" accepts any. Same-host origins
// are checked by the caller.
type AllowList []string

// ValidateOrigin implements OriginValidator.
func (a AllowList) ValidateOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	if slices.Contains(a, "*") {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return slices.Contains(a, u.Scheme+"://"+u.Host)
}

// ClientIP returns the client address of r, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then the connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
