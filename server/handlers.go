package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"plantregistry/database"
	"plantregistry/registry"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func sendError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message, RequestID: RequestID(c)})
}

// CreateRunRequest submits two registries for reconciliation.
type CreateRunRequest struct {
	Sources []registry.PlantRecord `json:"sources" binding:"required"`
	Targets []registry.PlantRecord `json:"targets"`
}

// CreateRunResponse reports the stored run.
type CreateRunResponse struct {
	RunID string `json:"run_id"`
	Stats any    `json:"stats"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Sources) == 0 {
		sendError(c, http.StatusBadRequest, "sources must not be empty")
		return
	}

	started := time.Now()
	result, err := s.runner.Run(c.Request.Context(), req.Sources, req.Targets)
	if err != nil {
		s.logger.Error("run failed", "error", err, "request_id", RequestID(c))
		sendError(c, http.StatusServiceUnavailable, "reconciliation aborted: "+err.Error())
		return
	}

	if err := s.store.SaveRun(c.Request.Context(), result, started); err != nil {
		s.logger.Error("failed to save run", "run_id", result.RunID, "error", err)
		sendError(c, http.StatusInternalServerError, "failed to persist run")
		return
	}

	c.JSON(http.StatusCreated, CreateRunResponse{RunID: result.RunID, Stats: result.Stats})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			sendError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		sendError(c, http.StatusInternalServerError, "failed to list runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "total": len(runs)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			sendError(c, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("failed to load run", "error", err)
		sendError(c, http.StatusInternalServerError, "failed to load run")
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleGetRecords(c *gin.Context) {
	runID := c.Param("id")
	if _, err := s.store.GetRun(c.Request.Context(), runID); err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			sendError(c, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("failed to load run", "error", err)
		sendError(c, http.StatusInternalServerError, "failed to load run")
		return
	}

	records, err := s.store.GetRecords(c.Request.Context(), runID)
	if err != nil {
		s.logger.Error("failed to load records", "run_id", runID, "error", err)
		sendError(c, http.StatusInternalServerError, "failed to load records")
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "records": records, "total": len(records)})
}

func (s *Server) handleGetReview(c *gin.Context) {
	runID := c.Param("id")
	if _, err := s.store.GetRun(c.Request.Context(), runID); err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			sendError(c, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("failed to load run", "error", err)
		sendError(c, http.StatusInternalServerError, "failed to load run")
		return
	}

	items, err := s.store.GetReviewItems(c.Request.Context(), runID)
	if err != nil {
		s.logger.Error("failed to load review items", "run_id", runID, "error", err)
		sendError(c, http.StatusInternalServerError, "failed to load review items")
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "items": items, "total": len(items)})
}
