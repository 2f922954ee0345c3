package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/internal/application/orchestrator"
	"github.com/flowforge-io/flowforge/pkg/domain"
)

// GraphRequest wraps a user-authored graph for the pipeline endpoints.
type GraphRequest struct {
	Graph  *domain.Graph           `json:"graph" binding:"required"`
	Config *domain.ExecutionConfig `json:"config"`
}

// SubmitResponse acknowledges an accepted execution.
type SubmitResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submitted_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := s.health.Status()
	code := http.StatusOK
	state := "healthy"
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(code, gin.H{
		"status":    state,
		"timestamp": status.Timestamp.Format(time.RFC3339),
		"checks": gin.H{
			"active_executions":   status.ActiveExecutions,
			"available_memory_mb": status.AvailableMemoryMB,
		},
	})
}

// handleValidateGraph checks graph structure without compiling it.
func (s *Server) handleValidateGraph(c *gin.Context) {
	var req GraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	result := s.orchestrator.ValidateGraph(req.Graph)
	c.JSON(http.StatusOK, result)
}

// handleCompileGraph validates and compiles a graph into its execution plan.
func (s *Server) handleCompileGraph(c *gin.Context) {
	var req GraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	compiled, err := s.orchestrator.CompileGraph(req.Graph)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "COMPILATION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, compiled)
}

// handleOptimizeGraph compiles a graph and reports every optimization pass.
func (s *Server) handleOptimizeGraph(c *gin.Context) {
	var req GraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	compiled, results, err := s.orchestrator.OptimizeGraph(req.Graph, req.Config)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "OPTIMIZATION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"compiled":      compiled,
		"optimizations": results,
	})
}

// handleSubmitExecution submits a graph for execution. With ?wait=true
// the request blocks until the execution reaches a terminal state.
func (s *Server) handleSubmitExecution(c *gin.Context) {
	var req orchestrator.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.Graph == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "graph is required",
			},
		})
		return
	}

	if c.Query("wait") == "true" {
		result, err := s.orchestrator.ExecuteGraph(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error: ErrorDetail{
					Code:    "SUBMISSION_FAILED",
					Message: err.Error(),
				},
			})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	id, err := s.orchestrator.SubmitGraph(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("failed to submit graph", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SUBMISSION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, SubmitResponse{
		ExecutionID: id,
		Status:      "submitted",
		SubmittedAt: time.Now().Format(time.RFC3339),
	})
}

// handleGetStatus returns an execution's lifecycle state.
func (s *Server) handleGetStatus(c *gin.Context) {
	executionID := c.Param("id")

	status, err := s.orchestrator.GetStatus(executionID)
	if err != nil {
		s.notFound(c, "execution not found")
		return
	}

	c.JSON(http.StatusOK, status)
}

// handleGetResult returns the result of a finished execution.
func (s *Server) handleGetResult(c *gin.Context) {
	executionID := c.Param("id")

	result, err := s.orchestrator.GetResult(executionID)
	if err != nil {
		status, statusErr := s.orchestrator.GetStatus(executionID)
		if statusErr != nil {
			s.notFound(c, "execution not found")
			return
		}
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_COMPLETED",
				Message: "execution has not reached a terminal state",
				Details: gin.H{"status": status.Status},
			},
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleGetEvents returns an execution's event log from ?from_version=N.
func (s *Server) handleGetEvents(c *gin.Context) {
	executionID := c.Param("id")

	fromVersion := 0
	if v := c.Query("from_version"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			s.badRequest(c, err)
			return
		}
		fromVersion = parsed
	}

	events, err := s.orchestrator.GetEvents(c.Request.Context(), executionID, fromVersion)
	if err != nil {
		s.logger.Error("failed to read events",
			zap.String("execution_id", executionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "EVENTS_UNAVAILABLE",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"execution_id": executionID,
		"events":       events,
		"total":        len(events),
	})
}

// handleGetPauseInfo describes a paused execution.
func (s *Server) handleGetPauseInfo(c *gin.Context) {
	executionID := c.Param("id")

	info := s.orchestrator.GetPauseInfo(executionID)
	if info == nil {
		s.notFound(c, "execution is not paused")
		return
	}

	c.JSON(http.StatusOK, info)
}

// handlePauseExecution pauses a running execution.
func (s *Server) handlePauseExecution(c *gin.Context) {
	executionID := c.Param("id")

	if err := s.orchestrator.PauseExecution(executionID); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{
				Code:    "PAUSE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"execution_id": executionID,
		"status":       string(domain.ExecutionStatusPaused),
	})
}

// handleResumeExecution resumes a paused execution.
func (s *Server) handleResumeExecution(c *gin.Context) {
	executionID := c.Param("id")

	if err := s.orchestrator.ResumeExecution(executionID); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{
				Code:    "RESUME_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"execution_id": executionID,
		"status":       string(domain.ExecutionStatusRunning),
	})
}

// handleCancelExecution cancels a running or paused execution.
func (s *Server) handleCancelExecution(c *gin.Context) {
	executionID := c.Param("id")

	if err := s.orchestrator.CancelExecution(executionID); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{
				Code:    "CANCELLATION_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"execution_id": executionID,
		"status":       string(domain.ExecutionStatusCancelled),
		"cancelled_at": time.Now().Format(time.RFC3339),
	})
}

// handleOptimizationHistory returns the optimizer's audit trail.
func (s *Server) handleOptimizationHistory(c *gin.Context) {
	history := s.orchestrator.OptimizationHistory()
	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"total":   len(history),
	})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	s.logger.Warn("invalid request", zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}

func (s *Server) notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error: ErrorDetail{
			Code:    "NOT_FOUND",
			Message: message,
		},
	})
}
