// Package httpapi exposes the routing engine over HTTP. The bearer token on
// the query endpoints is both the proof of identity and the session key the
// conversation memory lives under.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/auth"
	"github.com/studyhall-ai/orchestrator/internal/config"
	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/metrics"
	"github.com/studyhall-ai/orchestrator/internal/orchestrator"
)

// StudentQueryRequest is the student query endpoint's body.
type StudentQueryRequest struct {
	Query             string   `json:"query"`
	ID                string   `json:"id"`
	Grade             string   `json:"grade"`
	AvailableSubjects []string `json:"available_subjects"`
}

// InstructorQueryRequest is the teacher query endpoint's body.
type InstructorQueryRequest struct {
	Query             string   `json:"query"`
	InstructorID      string   `json:"instructor_id"`
	InstructorEmail   string   `json:"instructor_email"`
	AvailableSubjects []string `json:"available_subjects"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type queryResponse struct {
	Response string `json:"response"`
}

// Server wires the HTTP handlers over the auth service and the orchestrator.
type Server struct {
	auth    *auth.Service
	engine  *orchestrator.Orchestrator
	limiter *tokenLimiter
	logger  *zap.Logger
}

// NewServer builds the server. Rate limits follow the dynamic tunables when a
// config manager is provided.
func NewServer(authSvc *auth.Service, engine *orchestrator.Orchestrator, httpCfg config.HTTPConfig, tunables *config.Manager, logger *zap.Logger) *Server {
	s := &Server{
		auth:    authSvc,
		engine:  engine,
		limiter: newTokenLimiter(httpCfg.RateLimitPerMin, httpCfg.RateLimitBurst),
		logger:  logger,
	}
	if tunables != nil {
		tunables.OnChange(func(d config.Dynamic) {
			s.limiter.setLimits(d.RateLimitPerMin, d.RateLimitBurst)
		})
	}
	return s
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", s.instrument("/auth/login", s.handleLogin))
	mux.HandleFunc("/student/query", s.instrument("/student/query", s.handleStudentQuery))
	mux.HandleFunc("/teacher/query", s.instrument("/teacher/query", s.handleTeacherQuery))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing email or password")
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	} else if err != nil {
		s.logger.Error("Login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleStudentQuery(w http.ResponseWriter, r *http.Request) {
	token, claims, ok := s.authorize(w, r, "student")
	if !ok {
		return
	}

	var req StudentQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}

	reply, err := s.engine.HandleStudent(r.Context(), orchestrator.StudentQuery{
		SessionToken: token,
		StudentID:    req.ID,
		Grade:        req.Grade,
		Message:      req.Query,
		Subjects:     req.AvailableSubjects,
	})
	if errors.Is(err, memory.ErrNotFound) {
		writeError(w, http.StatusForbidden, "session expired")
		return
	} else if err != nil {
		s.logger.Error("Student query failed",
			zap.String("user_id", claims.Subject),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process query")
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Response: reply})
}

func (s *Server) handleTeacherQuery(w http.ResponseWriter, r *http.Request) {
	token, claims, ok := s.authorize(w, r, "teacher")
	if !ok {
		return
	}

	var req InstructorQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}

	reply, err := s.engine.HandleTeacher(r.Context(), orchestrator.TeacherQuery{
		SessionToken:    token,
		InstructorID:    req.InstructorID,
		InstructorEmail: req.InstructorEmail,
		Message:         req.Query,
		Subjects:        req.AvailableSubjects,
	})
	if errors.Is(err, memory.ErrNotFound) {
		writeError(w, http.StatusForbidden, "session expired")
		return
	} else if err != nil {
		s.logger.Error("Teacher query failed",
			zap.String("user_id", claims.Subject),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process query")
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Response: reply})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authorize validates the bearer token, checks the role, and applies the
// per-token rate limit. On failure it writes the response itself.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, role string) (string, *auth.Claims, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", nil, false
	}

	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusForbidden, "missing bearer token")
		return "", nil, false
	}

	claims, err := s.auth.Validate(token)
	if err != nil {
		writeError(w, http.StatusForbidden, "invalid or expired token")
		return "", nil, false
	}
	if claims.Role != role {
		writeError(w, http.StatusForbidden, "wrong role for this endpoint")
		return "", nil, false
	}

	if !s.limiter.allow(token) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return "", nil, false
	}
	return token, claims, true
}

func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.HTTPRequests.WithLabelValues(path, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("malformed Authorization header")
	}
	return parts[1], nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe runs the server until ctx is cancelled, then drains with a
// short grace period.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.HTTPConfig) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  secondsOr(cfg.ReadTimeoutSecs, 15*time.Second),
		WriteTimeout: secondsOr(cfg.WriteTimeoutSecs, 120*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func secondsOr(secs int, fallback time.Duration) time.Duration {
	if secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
