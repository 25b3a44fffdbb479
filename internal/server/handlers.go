package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aatumaykin/ssrworker/internal/processing"
	"github.com/aatumaykin/ssrworker/internal/protocol"
	"github.com/aatumaykin/ssrworker/internal/version"
	"github.com/aatumaykin/ssrworker/internal/workers"
)

type transformRequest struct {
	Records      []protocol.Record `json:"records"`
	View         string            `json:"view" binding:"required"`
	ReferenceKey string            `json:"reference_key"`
}

type filterRequest struct {
	Records    []protocol.Record `json:"records"`
	Predicates map[string]any    `json:"predicates"`
	Sort       string            `json:"sort"`
}

func (s *Server) processor() *processing.Processor {
	return processing.New(s.backend, s.logger)
}

func (s *Server) health(c *gin.Context) {
	stats := s.backend.Stats()
	status, code := "ok", http.StatusOK
	if stats.Terminated {
		status, code = "terminated", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "version": version.Version})
}

// parse accepts an Arrow IPC stream or file as the raw request body.
func (s *Server) parse(c *gin.Context) {
	records, err := s.processor().ParseBuffer(c.Request.Context(), c.Request.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	if records == nil {
		records = []protocol.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}

func (s *Server) transform(c *gin.Context) {
	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	result, err := s.processor().Transform(c.Request.Context(), req.Records, req.View, req.ReferenceKey)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": req.View, "result": result})
}

func (s *Server) filter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	records, err := s.processor().Filter(c.Request.Context(), req.Records, req.Predicates, req.Sort)
	if err != nil {
		s.fail(c, err)
		return
	}
	if records == nil {
		records = []protocol.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}

func (s *Server) listViews(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"views": s.opts.Views})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.Stats())
}

func (s *Server) badRequest(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		_ = c.Error(err)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps processing errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var tooLarge *http.MaxBytesError
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &tooLarge):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, processing.ErrUnsupportedInput):
		code = http.StatusBadRequest
	case workers.IsTaskError(err):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, workers.ErrPoolTerminated):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		code = 499
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
