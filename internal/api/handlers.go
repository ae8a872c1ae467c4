package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wolfslender/Media-Usage-Checker/pkg/batch"
	"github.com/wolfslender/Media-Usage-Checker/pkg/cleanup"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
)

type scanRequest struct {
	Fresh bool `json:"fresh"`
}

type idsRequest struct {
	IDs  []uint64 `json:"ids"  binding:"required,min=1,max=1000,dive,gt=0"`
	Mode string   `json:"mode" binding:"omitempty,oneof=delete trash"`
}

type progressResponse struct {
	RunID      string  `json:"run_id,omitempty"`
	InProgress bool    `json:"in_progress"`
	Offset     int     `json:"offset"`
	Total      int64   `json:"total"`
	Processed  int64   `json:"processed"`
	Progress   float64 `json:"progress"`
}

type usageResponse struct {
	Verdict    usage.Verdict         `json:"verdict"`
	Attachment *wordpress.Attachment `json:"attachment,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.walker.Status(c.Request.Context())
	if err != nil {
		s.internal(c, "failed to load status", err)
		return
	}
	success(c, status)
}

func (s *Server) handleProgress(c *gin.Context) {
	status, err := s.walker.Status(c.Request.Context())
	if err != nil {
		s.internal(c, "failed to load progress", err)
		return
	}

	success(c, progressResponse{
		RunID:      status.RunID,
		InProgress: status.InProgress,
		Offset:     status.Offset,
		Total:      status.RunTotal,
		Processed:  status.Processed,
		Progress:   status.Progress(),
	})
}

func (s *Server) handleScan(c *gin.Context) {
	var req scanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalid(c, err.Error())
			return
		}
	}

	result, err := s.walker.Step(c.Request.Context(), batch.StepOptions{Fresh: req.Fresh})
	if errors.Is(err, batch.ErrBusy) {
		failure(c, NewAPIError(CodeBusy, err.Error(), WithStatus(http.StatusConflict)))
		return
	}
	if err != nil && result == nil {
		s.internal(c, "scan step failed", err)
		return
	}
	if err != nil {
		s.logger.Warn("Scan step ended early: %v", err)
	}
	success(c, result)
}

func (s *Server) handleReset(c *gin.Context) {
	aborted, err := s.walker.Reset(c.Request.Context())
	if errors.Is(err, batch.ErrBusy) {
		failure(c, NewAPIError(CodeBusy, err.Error(), WithStatus(http.StatusConflict)))
		return
	}
	if err != nil {
		s.internal(c, "failed to reset scan", err)
		return
	}
	success(c, gin.H{"aborted": aborted})
}

func (s *Server) handleListMedia(c *gin.Context) {
	filter := c.DefaultQuery("filter", "unused")
	if filter == "all" {
		filter = ""
	}
	switch filter {
	case "", "used", "unused", "skipped", "deleted", "trashed":
	default:
		invalid(c, "unknown filter "+strconv.Quote(filter))
		return
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		invalid(c, err.Error())
		return
	}
	perPage, err := queryInt(c, "per_page", 20)
	if err != nil || perPage > 1000 {
		invalid(c, "per_page must be between 1 and 1000")
		return
	}

	results, err := s.walker.Results(c.Request.Context(), filter, page, perPage)
	if err != nil {
		s.internal(c, "failed to list results", err)
		return
	}
	success(c, results)
}

func (s *Server) handleUsage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		invalid(c, "id must be a positive integer")
		return
	}

	fresh, _ := strconv.ParseBool(c.Query("fresh"))
	verdict, att, err := s.checker.CheckID(c.Request.Context(), id, usage.Options{Fresh: fresh})
	switch {
	case errors.Is(err, wordpress.ErrNotFound), errors.Is(err, wordpress.ErrNotAttachment):
		failure(c, NewAPIError(CodeNotFound, err.Error(), WithStatus(http.StatusNotFound)))
		return
	case errors.Is(err, usage.ErrNoURL):
		failure(c, NewAPIError(CodeNoURL, err.Error(), WithStatus(http.StatusUnprocessableEntity)))
		return
	case err != nil:
		s.internal(c, "usage check failed", err)
		return
	}

	success(c, usageResponse{Verdict: verdict, Attachment: att})
}

func (s *Server) handleDelete(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err.Error())
		return
	}

	mode, err := cleanup.ParseMode(req.Mode)
	if err != nil {
		invalid(c, err.Error())
		return
	}

	report, err := s.cleaner.Delete(c.Request.Context(), req.IDs, mode, actor(c))
	if err != nil {
		s.cleanupError(c, err)
		return
	}
	success(c, report)
}

func (s *Server) handleRestore(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err.Error())
		return
	}

	report, err := s.cleaner.Restore(c.Request.Context(), req.IDs, actor(c))
	if err != nil {
		s.cleanupError(c, err)
		return
	}
	success(c, report)
}

func (s *Server) cleanupError(c *gin.Context, err error) {
	if errors.Is(err, cleanup.ErrInvalidID) || errors.Is(err, cleanup.ErrInvalidMode) {
		invalid(c, err.Error())
		return
	}
	s.internal(c, "cleanup failed", err)
}

func (s *Server) internal(c *gin.Context, msg string, err error) {
	s.logger.Error("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, msg, err)
	failure(c, NewAPIError(CodeInternal, msg, WithError(err)))
}

func invalid(c *gin.Context, msg string) {
	failure(c, NewAPIError(CodeInvalidParameter, msg, WithStatus(http.StatusBadRequest)))
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return v, nil
}
