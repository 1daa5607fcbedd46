package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roach88/sbomgraph/internal/engine"
	"github.com/roach88/sbomgraph/internal/ir"
	"github.com/roach88/sbomgraph/internal/sbom"
)

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Source  string          `json:"source,omitempty"`
	Field   string          `json:"field,omitempty"`
	Subject ir.Identifier   `json:"subject,omitempty"`
	Cycle   []ir.Identifier `json:"cycle,omitempty"`
}

const defaultHistoryLimit = 50

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": ir.EngineVersion})
}

func (s *Server) handleMerge(c *gin.Context) {
	source := strings.TrimSpace(c.Query("source"))
	if source == "" {
		source = "http"
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, s.maxBody+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorBody{Code: sbom.ErrCodeRead, Message: err.Error(), Source: source})
		return
	}
	if int64(len(body)) > s.maxBody {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorBody{
			Code:    sbom.ErrCodeRead,
			Message: "request body exceeds " + strconv.FormatInt(s.maxBody, 10) + " bytes",
			Source:  source,
		})
		return
	}

	doc, err := s.decoder.Decode(source, body)
	if err != nil {
		if le, ok := sbom.IsLoadError(err); ok {
			c.JSON(http.StatusBadRequest, ErrorBody{Code: le.Code, Message: le.Message, Source: le.Source, Field: le.Field})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorBody{Code: "INTERNAL", Message: err.Error()})
		return
	}

	summary, err := s.engine.Merge(c.Request.Context(), doc)
	if err != nil {
		var merr *engine.MergeError
		if !errors.As(err, &merr) {
			c.JSON(http.StatusInternalServerError, ErrorBody{Code: "INTERNAL", Message: err.Error()})
			return
		}
		status := http.StatusUnprocessableEntity
		if merr.Code == engine.ErrCodeCircularDependency {
			status = http.StatusConflict
		}
		c.JSON(status, ErrorBody{
			Code:    string(merr.Code),
			Message: merr.Message,
			Source:  merr.Source,
			Field:   merr.Field,
			Subject: merr.Subject,
			Cycle:   merr.Cycle,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleClear(c *gin.Context) {
	s.engine.Clear(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"seq": s.engine.Seq()})
}

func (s *Server) handleGraph(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, ErrorBody{Code: "JOURNAL_DISABLED", Message: "no journal configured"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorBody{Code: "INVALID_LIMIT", Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	attempts, err := s.history.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("list history", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorBody{Code: "INTERNAL", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}
