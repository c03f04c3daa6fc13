package control

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"driver-companion/internal/dashboard"
	"driver-companion/internal/domain/driver"
	"driver-companion/internal/domain/notification"
	"driver-companion/internal/general/logger"

	"github.com/go-chi/chi/v5"
)

// Dashboard is the slice of the dashboard the control API exposes. The
// deep-link route from a notification tap lands here.
type Dashboard interface {
	Snapshot() dashboard.Snapshot
	Entries(pendingOnly bool) []notification.Notification
	Acknowledge(ctx context.Context, id string) (notification.Notification, bool)
	SetAvailable(ctx context.Context, available bool) error
}

// Server is the local (loopback) control API for the running dashboard.
type Server struct {
	addr   string
	svc    Dashboard
	logger *logger.Logger
}

// New creates a control Server listening on addr.
func New(addr string, svc Dashboard, lg *logger.Logger) *Server {
	return &Server{addr: addr, svc: svc, logger: lg}
}

// Router mounts the control endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Get("/log", s.handleLog)
	r.Post("/open/{notification_id}", s.handleOpen)
	r.Post("/availability", s.handleAvailability)

	return r
}

// ListenAndServe runs the control server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "control_listening", "Control API listening",
		map[string]any{"addr": s.addr})

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ----- handlers -----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctx := s.withReqID(r.Context(), r)
	s.jsonResponse(ctx, w, http.StatusOK, s.svc.Snapshot())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	ctx := s.withReqID(r.Context(), r)

	pendingOnly := r.URL.Query().Get("pending") == "true"
	entries := s.svc.Entries(pendingOnly)
	if entries == nil {
		entries = []notification.Notification{}
	}

	s.jsonResponse(ctx, w, http.StatusOK, entries)
}

// handleOpen is the deep-link target for a notification tap.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := s.withReqID(r.Context(), r)

	id := chi.URLParam(r, "notification_id")
	if strings.TrimSpace(id) == "" {
		s.httpError(ctx, w, http.StatusBadRequest, "notification_id is required", nil)
		return
	}

	n, ok := s.svc.Acknowledge(ctx, id)
	if !ok {
		s.httpError(ctx, w, http.StatusNotFound, "unknown notification id", nil)
		return
	}

	s.jsonResponse(ctx, w, http.StatusOK, n)
}

// handleAvailability accepts either form: {"available": bool} or
// {"status": "AVAILABLE"|"UNAVAILABLE"}.
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := s.withReqID(r.Context(), r)

	var req struct {
		Available *bool  `json:"available"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var available bool
	switch {
	case req.Status != "":
		st, err := driver.ParseStatus(req.Status)
		if err != nil {
			s.httpError(ctx, w, http.StatusBadRequest, "Invalid driver status", err)
			return
		}
		available = st == driver.StatusAvailable
	case req.Available != nil:
		available = *req.Available
	default:
		s.httpError(ctx, w, http.StatusBadRequest, "available or status is required", nil)
		return
	}

	if err := s.svc.SetAvailable(ctx, available); err != nil {
		s.httpError(ctx, w, http.StatusBadGateway, "Failed to update availability", err)
		return
	}

	s.jsonResponse(ctx, w, http.StatusOK, s.svc.Snapshot())
}

// ----- general helpers -----

func (s *Server) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			s.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (s *Server) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	s.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	s.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (s *Server) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return s.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
