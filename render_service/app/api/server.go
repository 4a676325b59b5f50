package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storyreel/jobs"
	"storyreel/render_service/app/services"
	"storyreel/shared/types"
)

// Server exposes the render processor over HTTP.
type Server struct {
	processor *services.RenderProcessor
}

// NewServer creates a new API server instance
func NewServer(proc *services.RenderProcessor) *Server {
	return &Server{processor: proc}
}

// NewRouter constructs a Gin engine with registered routes.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	g := r.Group("/api/render")
	g.POST("", s.handleSubmit)
	g.GET("/:id", s.handleStatus)
	return r
}

// handleSubmit queues a render and returns its job id.
// POST /api/render
func (s *Server) handleSubmit(c *gin.Context) {
	var req types.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.RenderResponse{Message: "Invalid JSON payload", Error: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, types.RenderResponse{Message: "Invalid render request", Error: err.Error()})
		return
	}

	job, err := s.processor.Submit(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.RenderResponse{Message: "Failed to queue render", Error: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, types.RenderResponse{
		Success: true,
		Message: "Render queued",
		JobID:   job.ID,
		Status:  string(job.Status),
	})
}

// handleStatus reports a job record.
// GET /api/render/:id
func (s *Server) handleStatus(c *gin.Context) {
	job, err := s.processor.Job(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
