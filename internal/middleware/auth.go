package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bachelorbari/bachelorbari/internal/auth"
	"github.com/bachelorbari/bachelorbari/internal/metrics"
	"github.com/bachelorbari/bachelorbari/internal/model"
)

// touchTimeout bounds the background last_used_at update.
const touchTimeout = 5 * time.Second

// TokenResolver resolves bearer tokens to their stored records.
type TokenResolver interface {
	Resolve(ctx context.Context, plaintext string) (*model.AuthToken, error)
	Touch(ctx context.Context, id string) error
}

// AuthCache caches resolved identities keyed by a fast token digest.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens TokenResolver
	// Cache is optional.
	Cache   AuthCache
	Metrics metrics.Recorder
	// MinDuration pads every authentication attempt so that failures and
	// successes take the same time. Zero disables padding.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates requests by bearer token.
// The identity is stored with auth.ContextWithAuth and recorded on the
// request's model.RequestContext so the tracker logs the user.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, reason := authenticate(r, cfg, recorder)
			if authCtx == nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", ClientIP(r)),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeUnauthenticated(w)
				return
			}

			if rc := auth.RequestFromContext(r.Context()); rc != nil {
				rc.SetUserID(authCtx.UserID)
			}

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate returns the identity for r, or nil and a failure reason.
func authenticate(r *http.Request, cfg AuthConfig, recorder metrics.Recorder) (*model.AuthContext, string) {
	if cfg.MinDuration > 0 {
		start := time.Now()
		defer func() {
			if elapsed := time.Since(start); elapsed < cfg.MinDuration {
				time.Sleep(cfg.MinDuration - elapsed)
			}
		}()
	}

	token := extractBearerToken(r)
	if token == "" {
		return nil, "missing_token"
	}
	if !auth.ValidateTokenFormat(token) {
		return nil, "invalid_format"
	}

	ctx := r.Context()
	cacheKey := auth.QuickHash(token)

	if cfg.Cache != nil {
		cached, err := cfg.Cache.GetAuthContext(ctx, cacheKey)
		if err != nil {
			cfg.Logger.Warn("auth cache read failed", slog.String("error", err.Error()))
		}
		if cached != nil {
			recorder.IncAuthCacheHit()
			return cached, ""
		}
		recorder.IncAuthCacheMiss()
	}

	record, err := cfg.Tokens.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, "invalid_token"
		}
		cfg.Logger.Error("token lookup failed",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(ctx)),
		)
		return nil, "lookup_error"
	}

	authCtx := &model.AuthContext{
		TokenID:     record.ID,
		TokenPrefix: record.Prefix,
		UserID:      record.UserID,
	}

	if cfg.Cache != nil {
		if err := cfg.Cache.SetAuthContext(ctx, cacheKey, authCtx); err != nil {
			cfg.Logger.Warn("auth cache write failed", slog.String("error", err.Error()))
		}
	}

	// The request context is cancelled once the response is written.
	touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
	go func() {
		defer cancel()
		if err := cfg.Tokens.Touch(touchCtx, record.ID); err != nil {
			cfg.Logger.Warn("token touch failed",
				slog.String("token_id", record.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return authCtx, ""
}

// extractBearerToken returns the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeUnauthenticated writes the same 401 body for every failure.
func writeUnauthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, []byte(`{"message":"Unauthenticated."}`))
}
