package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/deepresearch/patterns/graph"
	"github.com/leofalp/deepresearch/patterns/research"
	"github.com/leofalp/deepresearch/providers/store/sqlite"
)

// runRequest is the body of POST /api/agent/run. UserID is accepted for
// client compatibility and not used.
type runRequest struct {
	UserID         string `json:"userId"`
	Question       string `json:"question" binding:"required"`
	RecipientEmail string `json:"recipientEmail" binding:"omitempty,email"`
}

type runResponse struct {
	Success         bool              `json:"success"`
	RunID           string            `json:"runId"`
	DocURL          string            `json:"docUrl"`
	ExternalDraftID string            `json:"externalDraftId"`
	Sources         []research.Source `json:"sources"`
	Draft           string            `json:"draft"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId,omitempty"`
	Error   string `json:"error"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRun(c *gin.Context) {
	var request runRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	question := strings.TrimSpace(request.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "question must not be blank"})
		return
	}

	state := s.config.Runner.Run(c.Request.Context(), research.Input{
		Question:       question,
		RecipientEmail: strings.TrimSpace(request.RecipientEmail),
	})

	if state.Failed() {
		c.JSON(http.StatusInternalServerError, errorResponse{RunID: state.RunID, Error: state.Error})
		return
	}

	c.JSON(http.StatusOK, runResponse{
		Success:         true,
		RunID:           state.RunID,
		DocURL:          state.DocURL,
		ExternalDraftID: state.ExternalDraftID,
		Sources:         state.Sources,
		Draft:           state.Draft,
	})
}

func (s *Server) handleReport(c *gin.Context) {
	report, err := s.config.Reports.Report(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sqlite.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "report not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Draft))
}

func (s *Server) handleRunCheckpoint(c *gin.Context) {
	checkpoint, err := s.config.Checkpoints.Latest(c.Request.Context(), c.Param("id"))
	if errors.Is(err, graph.ErrCheckpointNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, checkpoint)
}
