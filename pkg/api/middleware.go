package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/awsbridge/aws-profile-bridge/pkg/engine"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(start),
		)
	})
}

// tokenCheck requires the X-API-Token header to match the configured token.
// The health endpoint stays open so supervisors can probe the process.
func tokenCheck(token string) mux.MiddlewareFunc {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			presented := []byte(r.Header.Get("X-API-Token"))
			if subtle.ConstantTimeCompare(expected, presented) != 1 {
				writeError(w, http.StatusUnauthorized, engine.ErrorPayload{
					Kind:    engine.KindTokenUnavailable,
					Message: "missing or invalid api token",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit applies one shared token bucket; the surface only ever serves a
// single local client.
func rateLimit(perSecond float64, burst int) mux.MiddlewareFunc {
	if burst <= 0 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, engine.ErrorPayload{
					Kind:    engine.KindInternal,
					Message: "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
