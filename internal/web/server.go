// Package web provides the HTTP status and command server for the ces-device daemon.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sweeney/ces-device/internal/control"
	deverrors "github.com/sweeney/ces-device/internal/errors"
	"github.com/sweeney/ces-device/internal/status"
)

// commandTimeout bounds how long a request waits for the run loop.
const commandTimeout = 5 * time.Second

// Server serves the status page and accepts commands over HTTP.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	tracker    *status.Tracker
	commands   control.Submitter
	log        zerolog.Logger
}

// New creates a Server that reads state from tracker and hands commands
// to commands.
func New(addr string, tracker *status.Tracker, commands control.Submitter, log zerolog.Logger) *Server {
	s := &Server{
		tracker:  tracker,
		commands: commands,
		log:      log.With().Str("component", "web").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/index.json", s.handleJSON)
	r.Get("/records", s.handleRecords)
	r.Post("/commands", s.handleCommand)
	r.Get("/health", s.health)

	s.router = r
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting to listen for connections")
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.Error().Err(err).Msg("render status page")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, status.FormatRecords(s.tracker.Snapshot().Records))
}

// CommandRequest is the body of POST /commands.
type CommandRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, deverrors.NewInvalidRequest("body must be {\"command\": \"...\"}"))
		return
	}

	cmd, err := control.Parse(req.Command)
	if err != nil {
		writeError(w, err)
		return
	}

	switch cmd.Op {
	case control.OpStatus:
		s.handleJSON(w, r)
		return
	case control.OpRecords:
		s.handleRecords(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	if err := s.commands.Submit(ctx, cmd); err != nil {
		writeError(w, err)
		return
	}

	s.log.Info().Str("command", cmd.String()).Msg("command accepted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
