// Package api serves the bot's HTTP endpoints for health checks, metrics and
// administration.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/expressions"
	"github.com/vapor/penny-bot/internal/users"
)

// Metrics exposes the bot's counters as JSON
type Metrics interface {
	GetMetrics() string
	RunReport() error
}

// CacheSnapshotter stores the reaction cache on demand
type CacheSnapshotter interface {
	SnapshotNow(ctx context.Context) error
}

// Server holds the dependencies of the HTTP handlers
type Server struct {
	adminToken  string
	metrics     Metrics
	snapshots   CacheSnapshotter
	expressions expressions.Repository
	users       users.CoinService
}

// NewServer creates a Server. Admin routes are disabled when adminToken is empty.
func NewServer(adminToken string, metrics Metrics, snapshots CacheSnapshotter, repository expressions.Repository, coinService users.CoinService) *Server {
	return &Server{
		adminToken:  adminToken,
		metrics:     metrics,
		snapshots:   snapshots,
		expressions: repository,
		users:       coinService,
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", s.metricsHandler).Methods("GET")

	admin := router.NewRoute().Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/cache/snapshot", s.snapshotHandler).Methods("POST")
	admin.HandleFunc("/report/trigger", s.triggerReportHandler).Methods("POST")
	admin.HandleFunc("/expressions", s.listExpressionsHandler).Methods("GET")
	admin.HandleFunc("/expressions", s.addExpressionHandler).Methods("POST")
	admin.HandleFunc("/expressions", s.removeExpressionHandler).Methods("DELETE")
	admin.HandleFunc("/users/{id}", s.userHandler).Methods("GET")

	return router
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeError(w, http.StatusForbidden, "admin API is disabled")
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.metrics.GetMetrics()))
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.snapshots.SnapshotNow(r.Context()); err != nil {
		logrus.Errorf("Manual cache snapshot failed: %v", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache snapshot stored"})
}

func (s *Server) triggerReportHandler(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := s.metrics.RunReport(); err != nil {
			logrus.Errorf("Manual report trigger failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Report triggered"})
}

type expressionView struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type expressionRequest struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
}

func (s *Server) listExpressionsHandler(w http.ResponseWriter, r *http.Request) {
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		list, err := s.expressions.ExpressionsOf(r.Context(), userID)
		if err != nil {
			logrus.Errorf("Failed to list expressions of %s: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "failed to list expressions")
			return
		}

		views := make([]expressionView, 0, len(list))
		for _, expression := range list {
			views = append(views, expressionView{Kind: expression.Kind(), Value: expression.Value()})
		}
		writeJSON(w, http.StatusOK, views)
		return
	}

	all, err := s.expressions.GetAll(r.Context())
	if err != nil {
		logrus.Errorf("Failed to list expressions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list expressions")
		return
	}

	byRawValue := make(map[string][]string, len(all))
	for expression, userIDs := range all {
		byRawValue[expression.RawValue()] = userIDs
	}
	writeJSON(w, http.StatusOK, byRawValue)
}

func (s *Server) addExpressionHandler(w http.ResponseWriter, r *http.Request) {
	request, expression, ok := decodeExpression(w, r)
	if !ok {
		return
	}

	if err := s.expressions.Insert(r.Context(), expression, request.UserID); err != nil {
		logrus.Errorf("Failed to add expression: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to add expression")
		return
	}
	writeJSON(w, http.StatusCreated, expressionView{Kind: expression.Kind(), Value: expression.Value()})
}

func (s *Server) removeExpressionHandler(w http.ResponseWriter, r *http.Request) {
	request, expression, ok := decodeExpression(w, r)
	if !ok {
		return
	}

	if err := s.expressions.Remove(r.Context(), expression, request.UserID); err != nil {
		logrus.Errorf("Failed to remove expression: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to remove expression")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) userHandler(w http.ResponseWriter, r *http.Request) {
	discordID := mux.Vars(r)["id"]

	user, err := s.users.GetOrCreateUser(r.Context(), discordID)
	if err != nil {
		logrus.Errorf("Failed to get user %s: %v", discordID, err)
		writeError(w, http.StatusBadGateway, "users service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func decodeExpression(w http.ResponseWriter, r *http.Request) (expressionRequest, expressions.Expression, bool) {
	var request expressionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return request, nil, false
	}
	if request.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return request, nil, false
	}

	expression, err := expressions.New(request.Kind, request.Text)
	if errors.Is(err, expressions.ErrInvalidExpression) {
		writeError(w, http.StatusBadRequest, err.Error())
		return request, nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to parse expression")
		return request, nil, false
	}

	return request, expression, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
