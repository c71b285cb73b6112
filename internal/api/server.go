package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/KeystonCloud/satellite/internal/api/handler"
	mw "github.com/KeystonCloud/satellite/internal/api/middleware"
	"github.com/KeystonCloud/satellite/internal/api/response"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Deps are the services the HTTP surface calls into.
type Deps struct {
	Nodes   handler.NodeService
	Deploys handler.DeployService
	Content handler.ContentFetcher
	// NodeLimiter throttles node registration and heartbeats when set.
	NodeLimiter *mw.RateLimiter
	// Checks are run by /readyz, keyed by dependency name.
	Checks map[string]CheckFunc
}

type Server struct {
	router chi.Router
	logger zerolog.Logger
	deps   Deps
}

func NewServer(logger zerolog.Logger, deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		deps:   deps,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	node := handler.NewNode(s.deps.Nodes)
	dep := handler.NewDeploy(s.deps.Deploys)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.deps.NodeLimiter != nil {
				r.Use(s.deps.NodeLimiter.Handler)
			}
			r.Post("/nodes/register", node.Register)
			r.Post("/nodes/heartbeat", node.Heartbeat)
		})
		r.Get("/nodes", node.List)

		r.Post("/deploy", dep.Create)
		r.Get("/deployments/{id}", dep.Get)
		r.Get("/deployments/{id}/nodes", dep.ListNodes)
	})

	if s.deps.Content != nil {
		gw := handler.NewGateway(s.deps.Content)
		s.router.Get("/apps/{name}", gw.Serve)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	response.WriteStatus(w, http.StatusOK, "ok")
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	response.WriteJSON(w, status, checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
