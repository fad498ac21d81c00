package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/extract"
	"github.com/poiesic/clausemark/ingestion"
)

const (
	// DefaultMaxUploadBytes bounds request bodies when no limit is configured.
	DefaultMaxUploadBytes = 32 << 20

	// DefaultMaxTopK is the largest top_k an ask request may use.
	DefaultMaxTopK = 100
)

// Service is the set of operations the HTTP API exposes.
type Service interface {
	Ingest(ctx context.Context, filename string, pages []string, metadata map[string]string) (ingestion.Result, error)
	IngestReader(ctx context.Context, r io.Reader, filename string) (ingestion.Result, error)
	Document(ctx context.Context, id core.ID) (*core.Document, error)
	Audit(ctx context.Context, id core.ID) ([]core.Finding, error)
	Extract(ctx context.Context, id core.ID) (*extract.Fields, error)
	Query(ctx context.Context, question string, k int) (*core.QueryResponse, error)
}

// Server is the HTTP API server.
type Server struct {
	router         chi.Router
	svc            Service
	log            *slog.Logger
	maxUploadBytes int64
	maxTopK        int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithMaxUploadBytes bounds the size of ingestion requests.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithMaxTopK sets the largest top_k an ask request may use.
func WithMaxTopK(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxTopK = n
		}
	}
}

// NewServer creates and configures the HTTP server.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		log:            slog.Default().With("component", "api"),
		maxUploadBytes: DefaultMaxUploadBytes,
		maxTopK:        DefaultMaxTopK,
	}
	for _, opt := range opts {
		opt(s)
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

	r.Get("/healthz", s.handleHealth)

	r.Post("/documents", s.handleIngest)
	r.Route("/documents/{docID}", func(r chi.Router) {
		r.Get("/", s.handleGetDocument)
		r.Get("/audit", s.handleAudit)
		r.Get("/extract", s.handleExtract)
	})

	r.Post("/ask", s.handleAsk)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
