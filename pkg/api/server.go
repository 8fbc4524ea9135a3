// Package api exposes the engine over a local HTTP surface for clients that
// cannot speak native messaging.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/awsbridge/aws-profile-bridge/pkg/console"
	"github.com/awsbridge/aws-profile-bridge/pkg/engine"
	"github.com/awsbridge/aws-profile-bridge/pkg/profile"
)

// enrichTimeout bounds a full-depth listing; token directory scans should
// never hold a request longer than this.
const enrichTimeout = 30 * time.Second

// Service is the slice of the engine the HTTP surface needs.
type Service interface {
	ListProfiles(ctx context.Context, depth profile.Depth) []profile.Profile
	ConsoleURL(ctx context.Context, name string) (string, error)
	URLCacheStats() console.Stats
	ClearCaches()
}

// Config tunes the server.
type Config struct {
	// APIToken, when set, is required in the X-API-Token header.
	APIToken string
	// RequestsPerSecond throttles clients; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// Server routes HTTP requests into the engine.
type Server struct {
	service Service
	router  *mux.Router
}

// NewServer builds the router with its middleware chain.
func NewServer(service Service, cfg Config) *Server {
	s := &Server{service: service, router: mux.NewRouter()}

	s.router.Use(requestLogging)
	if cfg.APIToken != "" {
		s.router.Use(tokenCheck(cfg.APIToken))
	}
	if cfg.RequestsPerSecond > 0 {
		s.router.Use(rateLimit(cfg.RequestsPerSecond, cfg.Burst))
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/profiles", s.handleProfiles).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/profiles/enrich", s.handleProfilesEnriched).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/profiles/{name}/console-url", s.handleConsoleURL).Methods(http.MethodPost)
	s.router.HandleFunc("/cache/stats", s.handleCacheStats).Methods(http.MethodGet)
	s.router.HandleFunc("/cache/clear", s.handleCacheClear).Methods(http.MethodPost)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := s.service.ListProfiles(r.Context(), profile.DepthFast)
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

func (s *Server) handleProfilesEnriched(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), enrichTimeout)
	defer cancel()

	done := make(chan []profile.Profile, 1)
	go func() { done <- s.service.ListProfiles(ctx, profile.DepthFull) }()

	select {
	case profiles := <-done:
		writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
	case <-ctx.Done():
		writeError(w, http.StatusGatewayTimeout, engine.ErrorPayload{
			Kind:    engine.KindTimeout,
			Message: "profile enrichment timed out",
		})
	}
}

func (s *Server) handleConsoleURL(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	url, err := s.service.ConsoleURL(r.Context(), name)
	if err != nil {
		payload := engine.PayloadFor(err)
		writeError(w, statusForKind(payload.Kind), payload)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"profile": name, "url": url})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.URLCacheStats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.service.ClearCaches()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func statusForKind(kind engine.ErrorKind) int {
	switch kind {
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindTokenUnavailable:
		return http.StatusUnauthorized
	case engine.KindTimeout:
		return http.StatusGatewayTimeout
	case engine.KindExchangeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encoding response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, payload engine.ErrorPayload) {
	writeJSON(w, status, map[string]any{"error": payload})
}
