package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/icare-health/rag-service/internal/api/handlers"
	appMiddleware "github.com/icare-health/rag-service/internal/api/middlewares"
	"github.com/icare-health/rag-service/internal/config"
	"github.com/icare-health/rag-service/internal/core"
	"github.com/icare-health/rag-service/internal/core/ingest"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, store core.VectorStore, pipeline *ingest.Pipeline, llm core.LLMProvider, archive core.ObjectClient) *Server {
	ragHandler := handlers.NewRagHandler(pipeline, store, archive, cfg.BucketName)
	chatHandler := handlers.NewChatHandler(pipeline, llm, cfg.TopK)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/rag", func(api chi.Router) {
		api.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

		api.Get("/documents", ragHandler.ListDocuments)
		api.Get("/documents/{docID}", ragHandler.GetDocument)
		api.Post("/chat", chatHandler.Chat)

		// corpus mutation is admin-only
		api.Group(func(admin chi.Router) {
			admin.Use(appMiddleware.RequireRole("admin"))
			admin.Post("/ingest/url", ragHandler.IngestURL)
			admin.Post("/ingest/pdf", ragHandler.IngestPDF)
			admin.Delete("/documents/{docID}", ragHandler.DeleteDocument)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
