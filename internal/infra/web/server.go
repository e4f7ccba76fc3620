// Package web exposes recognition over HTTP. Each upload is one
// synchronous pass through the pipeline; the response body carries the
// terminal result for that clip.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"voice-player/internal/application"
	"voice-player/internal/domain"
)

const maxClipBytes = 10 * 1024 * 1024

type Server struct {
	addr        string
	authToken   string
	pipeline    *application.Pipeline
	resolver    application.Resolver
	logger      *slog.Logger
	mux         *http.ServeMux
	server      *http.Server
	rateLimiter *RateLimiter

	mu      sync.Mutex
	running bool
}

func NewServer(addr, authToken string, pipeline *application.Pipeline, resolver application.Resolver, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		authToken:   authToken,
		pipeline:    pipeline,
		resolver:    resolver,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(30, time.Minute), // 30 requests per minute per IP
	}
	s.mux.HandleFunc("POST /recognize", s.rateLimiter.Middleware(s.requireAuth(s.handleRecognize)))
	s.mux.HandleFunc("GET /commands", s.handleCommands)
	// No rate limiting on health checks.
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("http server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

// Run starts the server and blocks until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.authToken {
				s.logger.Warn("unauthorized request", "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	raw, err := readClip(r)
	if err != nil {
		s.logger.Error("reading recognize request", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result := s.pipeline.Run(r.Context(), raw)
	writeJSON(w, statusCode(result), newRecognition(result))
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commands": s.resolver.Tokens()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	code := http.StatusOK
	if !running {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"running":  running,
		"commands": len(s.resolver.Tokens()),
	})
}

// readClip accepts either a multipart upload with an "audio" field or the
// clip bytes straight in the body.
func readClip(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxClipBytes); err != nil {
			return nil, fmt.Errorf("parsing multipart form: %w", err)
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			return nil, fmt.Errorf("missing audio field: %w", err)
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxClipBytes))
	}
	return io.ReadAll(io.LimitReader(r.Body, maxClipBytes))
}

type recognition struct {
	RequestID string   `json:"request_id"`
	Status    string   `json:"status"`
	Text      string   `json:"text,omitempty"`
	Token     string   `json:"token,omitempty"`
	Video     string   `json:"video,omitempty"`
	Available []string `json:"available_commands,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func newRecognition(res *domain.Result) recognition {
	out := recognition{
		RequestID: res.RequestID,
		Status:    string(res.Status),
		Text:      res.Text,
		Token:     res.Token,
		Available: res.Available,
	}
	if res.Resource != nil {
		out.Video = res.Resource.Path
	}
	if res.Err != nil {
		out.ErrorKind = string(res.ErrKind)
		out.Error = res.Err.Error()
	}
	return out
}

// statusCode maps terminal states onto HTTP codes. Unmatched is a
// successful outcome, not an error.
func statusCode(res *domain.Result) int {
	if res.Status != domain.StatusFailed {
		return http.StatusOK
	}
	switch res.ErrKind {
	case domain.KindDecode:
		return http.StatusBadRequest
	case domain.KindModelLoad:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
