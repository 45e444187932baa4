package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/courierline-backend/api/responses"
	"github.com/angelmondragon/courierline-backend/api/validators"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/courierline-backend/pkg/redis"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// a crashed handler must not pin its key for the full record TTL
	inFlightTTL = 2 * time.Minute
)

// IdempotencyStore is the redis surface the middleware needs on top of the
// shared idempotency helpers.
type IdempotencyStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// idempotencyRule matches request paths with path.Match globs. A zero ttl
// means the configured default.
type idempotencyRule struct {
	method string
	glob   string
	ttl    time.Duration
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, glob: "/api/v1/orders/*/status"},
	{method: http.MethodPost, glob: "/api/v1/orders/*/assign"},
	{method: http.MethodPost, glob: "/api/v1/orders/*/reject"},
	{method: http.MethodPost, glob: "/api/v1/admin/refunds/*/review"},
	{method: http.MethodPost, glob: "/api/v1/admin/refunds/*/reject"},
	// money moves on these
	{method: http.MethodPost, glob: "/api/v1/orders/*/cancel", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, glob: "/api/v1/orders/*/refunds", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, glob: "/api/v1/admin/refunds/*/approve", ttl: criticalIdempotencyTTL},
}

// storedResponse is what lives under an idempotency key. While the first
// request is still running only Fingerprint is set and InFlight is true.
type storedResponse struct {
	InFlight    bool              `json:"in_flight,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	Status      int               `json:"status,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        []byte            `json:"body,omitempty"`
}

var replayedHeaders = []string{"Content-Type", "Location"}

// Idempotency makes the mutating order and refund routes safe to retry. The
// first request under an Idempotency-Key claims the key, runs, and stores its
// response; repeats with the same body replay that response, repeats with a
// different body are refused, and repeats that arrive while the first is still
// running get a conflict. 5xx responses release the key so clients can retry.
func Idempotency(store IdempotencyStore, defaultTTL time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if defaultTTL <= 0 {
		defaultTTL = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if ttl == 0 {
				ttl = defaultTTL
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
			if err != nil {
				code := pkgerrors.CodeValidation
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					code = pkgerrors.CodePayloadTooLarge
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(code, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := requestFingerprint(r.Method, r.URL.Path, body)
			key := store.IdempotencyKey(idempotencyScope(r), clientKey)

			claim, _ := json.Marshal(storedResponse{InFlight: true, Fingerprint: fingerprint})
			claimed, err := store.SetNX(ctx, key, string(claim), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayExisting(ctx, logg, store, w, key, fingerprint)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logError(ctx, logg, "release idempotency key", err)
				}
				return
			}
			record := storedResponse{
				Fingerprint: fingerprint,
				Status:      rec.statusCode(),
				Body:        rec.body.Bytes(),
			}
			for _, name := range replayedHeaders {
				if value := rec.Header().Get(name); value != "" {
					if record.Headers == nil {
						record.Headers = map[string]string{}
					}
					record.Headers[name] = value
				}
			}
			payload, err := json.Marshal(record)
			if err != nil {
				logError(ctx, logg, "encode idempotency record", err)
				return
			}
			if err := store.Set(ctx, key, string(payload), ttl); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func replayExisting(ctx context.Context, logg *logger.Logger, store IdempotencyStore, w http.ResponseWriter, key, fingerprint string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// the holder released or expired between our claim and read
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConcurrentModification, "idempotent request finished without a stored response, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
		return
	}
	var existing storedResponse
	if err := json.Unmarshal([]byte(raw), &existing); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	if existing.Fingerprint != fingerprint {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if existing.InFlight {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this Idempotency-Key is still in progress"))
		return
	}
	for name, value := range existing.Headers {
		w.Header().Set(name, value)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(existing.Status)
	_, _ = w.Write(existing.Body)
}

// idempotencyScope keeps keys from colliding across callers and endpoints.
func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{
		UserIDFromContext(r.Context()),
		StoreIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}, "|")
}

func requestFingerprint(method, urlPath string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(urlPath))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// routeTTL reports whether method+path needs an Idempotency-Key and the
// longest TTL among the matching rules.
func routeTTL(method, urlPath string) (time.Duration, bool) {
	var (
		ttl     time.Duration
		matched bool
	)
	for _, rule := range idempotencyRules {
		if rule.method != method {
			continue
		}
		if ok, _ := path.Match(rule.glob, strings.TrimSuffix(urlPath, "/")); !ok {
			continue
		}
		matched = true
		if rule.ttl > ttl {
			ttl = rule.ttl
		}
	}
	return ttl, matched
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
