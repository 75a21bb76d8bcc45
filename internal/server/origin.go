package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may open a websocket.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	logger   *slog.Logger
}

// NewOriginPolicy builds a policy from configured origins. "*" allows any
// origin; entries that are not scheme://host are ignored.
func NewOriginPolicy(origins []string, logger *slog.Logger) *OriginPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	p := &OriginPolicy{
		allowed: make(map[string]struct{}, len(origins)),
		logger:  logger,
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		p.allowed[normalized] = struct{}{}
	}

	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// Allowed reports whether r carries an acceptable Origin header. Requests
// without one are rejected unless every origin is allowed.
func (p *OriginPolicy) Allowed(r *http.Request) bool {
	if p.allowAll {
		return true
	}

	header := r.Header.Get("Origin")
	if header == "" {
		return false
	}
	normalized, ok := normalizeOrigin(header)
	if !ok {
		return false
	}
	_, exists := p.allowed[normalized]
	return exists
}

// CheckOrigin is a websocket.Upgrader CheckOrigin func that logs rejections.
func (p *OriginPolicy) CheckOrigin(r *http.Request) bool {
	if p.Allowed(r) {
		return true
	}
	p.logger.Warn("blocked websocket connection from disallowed origin",
		"origin", r.Header.Get("Origin"),
		"remote", r.RemoteAddr,
	)
	return false
}
