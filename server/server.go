// Package server exposes the reconciliation pipeline over HTTP: submit
// two registries, get back the merged record set, the statistics and
// the review queue of the stored run.
package server

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"plantregistry/database"
	"plantregistry/reconcile"
	"plantregistry/registry"
)

// Runner runs one reconciliation over two registries.
type Runner interface {
	Run(ctx context.Context, sources, targets []registry.PlantRecord) (*reconcile.RunResult, error)
}

// Server wires the HTTP handlers to the pipeline and the run store.
type Server struct {
	runner Runner
	store  *database.Store
	logger *slog.Logger
}

// New creates a server over a runner and a store.
func New(runner Runner, store *database.Store) *Server {
	return &Server{
		runner: runner,
		store:  store,
		logger: slog.Default().With("component", "server"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(s.logger))

	router.GET("/health", s.handleHealth)

	api := router.Group("/api/v1")
	{
		api.POST("/runs", s.handleCreateRun)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.GET("/runs/:id/records", s.handleGetRecords)
		api.GET("/runs/:id/review", s.handleGetReview)
	}

	return router
}
