package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unbindai/unbind/internal/analysis"
	"github.com/unbindai/unbind/internal/config"
	"github.com/unbindai/unbind/internal/llm"
	"github.com/unbindai/unbind/internal/pipeline"
	"github.com/unbindai/unbind/internal/store"
)

// Server is the HTTP API server for unbind.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	analyzer     *analysis.Analyzer
	llmClient    *llm.Client
	store        *store.Store
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, analyzer *analysis.Analyzer, llmClient *llm.Client, st *store.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		analyzer:     analyzer,
		llmClient:    llmClient,
		store:        st,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Public endpoints.
	r.Get("/api/health", s.handleHealth)
	r.Post("/api/auth/signup", s.handleSignup)
	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/logout", s.handleLogout)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg, s.log))

		r.Get("/api/auth/me", s.handleMe)

		r.Post("/api/analysis/analyze", s.handleAnalyze)
		r.Post("/api/analysis/upload", s.handleUpload)
		r.Get("/api/analysis/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/analysis/history", s.handleHistory)
		r.Get("/api/analysis/history/{analysisID}", s.handleHistoryItem)
		r.Post("/api/analysis/simulate", s.handleSimulate)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
