package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/trivium"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// Engine is the read-only view of the engine the status API serves.
type Engine interface {
	Status(ctx context.Context) (trivium.Status, error)
	Output(ctx context.Context) (string, error)
	BatchArtifacts(ctx context.Context, batchID string) ([]string, error)
	Artifact(ctx context.Context, batchID, name string) (string, error)
}

// Server exposes workflow progress over HTTP. It never mutates state.
type Server struct {
	Engine  Engine
	Streams *StreamManager
	metrics http.Handler
	logger  *slog.Logger
}

// HandlerOption configures the handler.
type HandlerOption func(*Server)

// WithMetricsHandler mounts a Prometheus handler on /metrics.
func WithMetricsHandler(h http.Handler) HandlerOption {
	return func(s *Server) { s.metrics = h }
}

// WithStreams shares a StreamManager whose hooks are attached to a running engine,
// so /events can follow a batch live.
func WithStreams(sm *StreamManager) HandlerOption {
	return func(s *Server) { s.Streams = sm }
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(s *Server) { s.logger = logger }
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...HandlerOption) http.Handler {
	s := &Server{Engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/status", s.GetStatus)
	r.Get("/output", s.GetOutput)
	r.Get("/batches/{batchID}/artifacts", s.ListArtifacts)
	r.Get("/batches/{batchID}/artifacts/*", s.GetArtifact)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Engine.Status(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Status error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Status failed", "err", err)
		return
	}
	s.writeJSON(w, status)
}

// GetOutput handles GET /output, returning the cumulative document as markdown.
func (s *Server) GetOutput(w http.ResponseWriter, r *http.Request) {
	text, err := s.Engine.Output(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Output error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Output read failed", "err", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

// ListArtifacts handles GET /batches/{batchID}/artifacts.
func (s *Server) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	names, err := s.Engine.BatchArtifacts(r.Context(), batchID)
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Artifact listing failed", "batch_id", batchID, "err", err)
		return
	}
	if len(names) == 0 {
		http.Error(w, "unknown batch", http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]any{"batch_id": batchID, "artifacts": names})
}

// GetArtifact handles GET /batches/{batchID}/artifacts/{name...}.
func (s *Server) GetArtifact(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	name := chi.URLParam(r, "*")
	text, err := s.Engine.Artifact(r.Context(), batchID, name)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		http.Error(w, "artifact not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Read error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Artifact read failed", "batch_id", batchID, "name", name, "err", err)
		return
	}

	contentType := "text/markdown; charset=utf-8"
	if json.Valid([]byte(text)) {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write([]byte(text))
}

// SubscribeEvents handles GET /events (SSE). The optional batch_id query parameter
// restricts the stream to one batch.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	batchID := r.URL.Query().Get("batch_id")
	ch, cancel := s.Streams.Subscribe(batchID)
	defer cancel()
	s.logger.Info("SSE client subscribed", "batch_id", batchID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "batch_id", batchID)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			flusher.Flush()
		}
	}
}
