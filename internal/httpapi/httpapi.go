// Package httpapi is the internal HTTP surface other platform services call
// to make the bot speak: guarded by a shared secret, rate limited per
// client IP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/osuripple/fokabot/internal/api"
)

// SendFunc enqueues a chat message to a channel or user.
type SendFunc func(message, target string) error

// LastFunc resolves a user id to their username and renders their last
// score line. api.ErrNotFound when no such user exists.
type LastFunc func(ctx context.Context, userID int) (username, message string, err error)

// Server is the internal API handler set.
type Server struct {
	secret string
	rps    float64
	send   SendFunc
	last   LastFunc

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a server. Every endpoint requires the shared secret in the
// Secret header; rps bounds each client IP's sustained request rate.
func New(secret string, rps float64, send SendFunc, last LastFunc) *Server {
	if rps <= 0 {
		rps = 10
	}
	return &Server{
		secret:   secret,
		rps:      rps,
		send:     send,
		last:     last,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/send_message", s.guard(s.handleSendMessage))
	mux.HandleFunc("POST /api/v0/last", s.guard(s.handleLast))
	return mux
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	slog.Info("internal api listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type reply struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeReply(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(reply{Code: code, Message: message})
}

// guard checks the shared secret and the per-IP rate limit before the
// endpoint runs, and converts panics into a 500 reply.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()
		w.Header().Set("X-Request-ID", rid)
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("internal api handler panicked", "path", r.URL.Path, "request_id", rid, "panic", rec)
				writeReply(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		if !s.limiter(clientIP(r)).Allow() {
			writeReply(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		if secret := r.Header.Get("Secret"); secret == "" || secret != s.secret {
			writeReply(w, http.StatusForbidden, "Forbidden")
			return
		}
		slog.Debug("internal api request", "path", r.URL.Path, "request_id", rid, "ip", clientIP(r))
		next(w, r)
	}
}

func (s *Server) limiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[ip]
	if !ok {
		// Bursts of three seconds' worth.
		burst := int(3 * s.rps)
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(s.rps), burst)
		s.limiters[ip] = l
	}
	return l
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target  string `json:"target"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Target == "" || req.Message == "" {
		writeReply(w, http.StatusBadRequest, "Missing required arguments.")
		return
	}
	if err := s.send(req.Message, req.Target); err != nil {
		slog.Error("internal api send_message failed", "error", err)
		writeReply(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeReply(w, http.StatusOK, "ok")
}

func (s *Server) handleLast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID *int `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == nil {
		writeReply(w, http.StatusBadRequest, "Missing required arguments.")
		return
	}

	username, message, err := s.last(r.Context(), *req.UserID)
	if errors.Is(err, api.ErrNotFound) {
		writeReply(w, http.StatusNotFound, "No such user")
		return
	}
	if err != nil {
		slog.Error("internal api last failed", "error", err)
		writeReply(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := s.send(message, username); err != nil {
		slog.Error("internal api last send failed", "error", err)
		writeReply(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeReply(w, http.StatusOK, "ok")
}
