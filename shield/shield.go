// Package shield holds the HTTP middleware in front of the control API:
// security headers, body limits, request tracing, basic auth and a per-IP
// rate limit.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(shield.StackConfig{MaxBody: 1 << 20}) {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// StackConfig tunes APIStack.
type StackConfig struct {
	MaxBody int64
	// PasswordHash enables basic auth when non-empty (bcrypt).
	PasswordHash string
	// Limiter is optional.
	Limiter *RateLimiter
}

// APIStack returns the middleware for the control API, outermost first:
// HeadToGet, SecurityHeaders, MaxBody, TraceID, RateLimiter, BasicAuth.
func APIStack(cfg StackConfig) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(cfg.MaxBody),
		TraceID,
	}
	if cfg.Limiter != nil {
		stack = append(stack, cfg.Limiter.Middleware)
	}
	if cfg.PasswordHash != "" {
		stack = append(stack, BasicAuth("snooze", cfg.PasswordHash, "/health"))
	}
	return stack
}
