package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/caoscope/caoscope/internal/api/handlers"
	"github.com/caoscope/caoscope/internal/config"
	"github.com/caoscope/caoscope/internal/services"
)

// Server wraps the HTTP listener and its wired routes.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

func NewServer(cfg *config.Config, search *services.SearchService, rag *services.RagService, docs *services.DocumentService, log *zap.Logger) *Server {
	searchHandler := handlers.NewSearchHandler(search, log)
	ragHandler := handlers.NewRagHandler(rag, log)
	docHandler := handlers.NewDocumentHandler(docs, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/search", searchHandler.Search)
		api.Post("/rag", ragHandler.Answer)
		api.Get("/documents", docHandler.List)
		api.Get("/documents/{cao_id}/chunks", docHandler.Chunks)
		api.Post("/documents/upload", docHandler.Upload)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: r,
		},
		log: log,
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
