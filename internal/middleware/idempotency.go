package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	// inFlightTTL bounds how long a crashed request keeps its key claimed.
	inFlightTTL = time.Minute
)

// ResponseCache stores replayable responses by key.
//
// SetNX writes only when the key is absent and reports whether it did; it is
// how a request claims a key before running. Set overwrites and is only used
// by the claim holder. Delete drops a claim whose response is not replayable.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// cachedResponse stores the response for idempotent requests. A zero
// StatusCode marks a request that is still running.
type cachedResponse struct {
	StatusCode  int             `json:"status_code"`
	ContentType string          `json:"content_type,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

var inFlightMarker = []byte(`{"status_code":0}`)

// Idempotency replays the stored response of a mutating request that carries
// an Idempotency-Key already seen for the same actor. The first request claims
// the key; a concurrent request with the same key gets 409 until the first
// one finishes. Cache errors fall through to normal processing. A nil cache
// disables the middleware.
func Idempotency(cache ResponseCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cache == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" || (r.Method != http.MethodPost && r.Method != http.MethodPut) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cacheKey := "idempotency:" + key
			if claims, ok := GetUserFromContext(ctx); ok {
				cacheKey = "idempotency:" + claims.UserID + ":" + key
			}

			claimed, err := cache.SetNX(ctx, cacheKey, inFlightMarker, inFlightTTL)
			if err != nil {
				log.WithError(err).Warn("idempotency cache claim failed")
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				replay(ctx, w, cache, cacheKey)
				return
			}

			var body bytes.Buffer
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)

			next.ServeHTTP(ww, r)

			// the request context may be gone once the handler returns
			storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()

			status := ww.Status()
			if status < 200 || status >= 500 || !json.Valid(body.Bytes()) {
				if err := cache.Delete(storeCtx, cacheKey); err != nil {
					log.WithError(err).Warn("idempotency cache release failed")
				}
				return
			}
			payload, err := json.Marshal(cachedResponse{
				StatusCode:  status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        body.Bytes(),
			})
			if err == nil {
				err = cache.Set(storeCtx, cacheKey, payload, idempotencyTTL)
			}
			if err != nil {
				log.WithError(err).Warn("idempotency cache write failed")
				_ = cache.Delete(storeCtx, cacheKey)
			}
		})
	}
}

// replay writes the stored response for a claimed key, or 409 while the
// claiming request is still running.
func replay(ctx context.Context, w http.ResponseWriter, cache ResponseCache, cacheKey string) {
	data, found, err := cache.Get(ctx, cacheKey)
	if err != nil {
		log.WithError(err).Warn("idempotency cache read failed")
	}
	var cached cachedResponse
	if found && json.Unmarshal(data, &cached) == nil && cached.StatusCode != 0 {
		if cached.ContentType != "" {
			w.Header().Set("Content-Type", cached.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(cached.StatusCode)
		_, _ = w.Write(cached.Body)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_, _ = w.Write([]byte(`{"message":"A request with this Idempotency-Key is already in progress"}`))
}
