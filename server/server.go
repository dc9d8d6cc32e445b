package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-par-server/clients"
	"github.com/jrsteele09/go-par-server/internal/config"
	"github.com/jrsteele09/go-par-server/internal/metrics"
	"github.com/jrsteele09/go-par-server/par"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	par     *par.Service
	clients clients.Repo
	metrics *metrics.Recorder
	health  HealthCheck
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithHealthCheck sets the check run by the health endpoint
func WithHealthCheck(check HealthCheck) ServerOption {
	return func(s *Server) {
		s.health = check
	}
}

// WithMetrics replaces the default metrics recorder
func WithMetrics(recorder *metrics.Recorder) ServerOption {
	return func(s *Server) {
		s.metrics = recorder
	}
}

func New(config config.Config, service *par.Service, clientRepo clients.Repo, options ...ServerOption) (*Server, error) {
	if service == nil {
		return nil, errors.New("[Server New] par service is required")
	}
	if clientRepo == nil {
		return nil, errors.New("[Server New] client repo is required")
	}

	s := &Server{
		env:     config.GetEnv(),
		mux:     http.NewServeMux(),
		config:  config,
		par:     service,
		clients: clientRepo,
		metrics: metrics.New(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
