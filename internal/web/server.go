// Package web serves the page shell, the stamp catalog, and the
// observational status endpoints around the websocket gateway.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/SaeKazamatsuri/BEAVER-server/internal/observability"
	"github.com/SaeKazamatsuri/BEAVER-server/pkg/gateway"
	"github.com/SaeKazamatsuri/BEAVER-server/pkg/session"
	"github.com/SaeKazamatsuri/BEAVER-server/pkg/stamp"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

//go:embed templates/index.html
var templateFS embed.FS

// Server wires the HTTP routes to the core services.
type Server struct {
	registry  *session.Registry
	catalog   *stamp.Catalog
	gateway   *gateway.Gateway
	serverID  string
	startedAt time.Time
	logger    zerolog.Logger
	tmpl      *template.Template
}

// Config holds web server dependencies.
type Config struct {
	Registry *session.Registry
	Catalog  *stamp.Catalog
	Gateway  *gateway.Gateway
	ServerID string
	Logger   zerolog.Logger
}

// NewServer creates the HTTP layer.
func NewServer(cfg Config) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	return &Server{
		registry:  cfg.Registry,
		catalog:   cfg.Catalog,
		gateway:   cfg.Gateway,
		serverID:  cfg.ServerID,
		startedAt: time.Now(),
		logger:    cfg.Logger,
		tmpl:      tmpl,
	}, nil
}

// Router builds the chi router for all HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.gateway.HandleWebSocket)
	r.Get("/api/stamps", s.handleStamps)
	r.Handle("/stamps/*", http.StripPrefix("/stamps/", http.FileServer(http.Dir(s.catalog.Dir()))))
	r.Get("/healthz", s.handleHealthz)
	r.Get("/statusz", s.handleStatusz)
	r.Handle("/metrics", observability.MetricsHandler())

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

type indexData struct {
	ServerID    string
	Session     string
	InitialJSON template.JS
}

// handleIndex renders the page shell seeded with the resolved session's
// current history as a one-shot payload.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	key := session.SanitizeKey(r.URL.Query().Get("session"))

	history, err := s.registry.History(key)
	if err != nil {
		s.logger.Error().Err(err).Str("session", key).Msg("Failed to load history for page")
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	for i := range history {
		if history[i].Stamp != "" {
			history[i].StampURL = s.catalog.URLFor(history[i].Stamp)
		}
	}

	initial, err := json.Marshal(history)
	if err != nil {
		http.Error(w, "failed to encode history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, indexData{
		ServerID:    s.serverID,
		Session:     key,
		InitialJSON: template.JS(initial),
	}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render page")
	}
}

// handleStamps returns the attachment catalog as {name, url} pairs.
func (s *Server) handleStamps(w http.ResponseWriter, r *http.Request) {
	stamps, err := s.catalog.List()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list stamps")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list stamps"})
		return
	}
	respondJSON(w, http.StatusOK, stamps)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatusz reports the aggregate counters the status indicator reads:
// a read-only snapshot, never a mutation.
func (s *Server) handleStatusz(w http.ResponseWriter, _ *http.Request) {
	sessions, messages := s.registry.Stats()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"server_id":      s.serverID,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"sessions":       sessions,
		"messages":       messages,
		"clients":        s.gateway.Hub().Count(),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
