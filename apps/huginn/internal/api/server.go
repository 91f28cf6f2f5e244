package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CycleClock exposes when each monitoring cycle last completed.
type CycleClock interface {
	LastUnbondCycle() time.Time
	LastJailCycle() time.Time
}

// Server represents the admin API server
type Server struct {
	subscriptionHandler *SubscriptionHandler
	clock               CycleClock
	logger              *zap.Logger
	server              *http.Server
}

// NewServer creates a new API server. The subscriber endpoints are unauthenticated, so host
// should stay a loopback address unless the port is otherwise protected.
func NewServer(host string, port int, subscriptionHandler *SubscriptionHandler, clock CycleClock, logger *zap.Logger) *Server {
	s := &Server{
		subscriptionHandler: subscriptionHandler,
		clock:               clock,
		logger:              logger,
		server: &http.Server{
			Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	s.server.Handler = s.setupRoutes()
	return s
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	return s.server.Shutdown(ctx)
}

// Handler returns the routed handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(s.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/subscribers/{subscriber_id}/addresses", s.subscriptionHandler.ListAddresses).Methods("GET")
	api.HandleFunc("/subscribers/{subscriber_id}/addresses", s.subscriptionHandler.AddAddress).Methods("POST")
	api.HandleFunc("/subscribers/{subscriber_id}/addresses/{address}", s.subscriptionHandler.RemoveAddress).Methods("DELETE")
	api.HandleFunc("/subscribers/{subscriber_id}/status", s.subscriptionHandler.GetStatus).Methods("GET")

	api.HandleFunc("/health", s.healthCheck).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	if t := s.clock.LastUnbondCycle(); !t.IsZero() {
		response.LastUnbondCycle = t.UTC().Format(time.RFC3339)
	}
	if t := s.clock.LastJailCycle(); !t.IsZero() {
		response.LastJailCycle = t.UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode health check response", zap.Error(err))
	}
}
