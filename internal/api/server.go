// Package api exposes scan status, results and cleanup over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"github.com/wolfslender/Media-Usage-Checker/pkg/batch"
	"github.com/wolfslender/Media-Usage-Checker/pkg/cleanup"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
)

type Walker interface {
	Step(ctx context.Context, opts batch.StepOptions) (*batch.StepResult, error)
	Status(ctx context.Context) (*batch.Status, error)
	Results(ctx context.Context, status string, page, perPage int) (*batch.ResultPage, error)
	Reset(ctx context.Context) (bool, error)
}

type Checker interface {
	CheckID(ctx context.Context, id uint64, opts usage.Options) (usage.Verdict, *wordpress.Attachment, error)
}

type Cleaner interface {
	Delete(ctx context.Context, ids []uint64, mode cleanup.Mode, actor string) (*cleanup.Report, error)
	Restore(ctx context.Context, ids []uint64, actor string) (*cleanup.Report, error)
}

type Server struct {
	walker  Walker
	checker Checker
	cleaner Cleaner
	logger  log.LoggerService
	cfg     config.APIConfig
	engine  *gin.Engine
}

func NewServer(walker Walker, checker Checker, cleaner Cleaner, logger log.LoggerService, cfg config.APIConfig) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		walker:  walker,
		checker: checker,
		cleaner: cleaner,
		logger:  logger,
		cfg:     cfg,
	}

	engine := gin.New()
	engine.Use(s.requestLogger(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("Panic while serving %s: %v", c.Request.URL.Path, recovered)
		failure(c, NewAPIError(CodeInternal, "internal error"))
	}))

	v1 := engine.Group("/v1", Authorize(cfg.Secret, CapManageOptions, CapUploadFiles))
	s.registerRoutes(v1)

	s.engine = engine
	return s
}

func (s *Server) registerRoutes(router *gin.RouterGroup) {
	router.GET("/status", s.handleStatus)
	router.GET("/progress", s.handleProgress)
	router.POST("/scan", s.handleScan)
	router.POST("/scan/reset", s.handleReset)

	media := router.Group("/media")
	{
		media.GET("", s.handleListMedia)
		media.GET("/:id/usage", s.handleUsage)
		media.POST("/delete", s.handleDelete)
		media.POST("/restore", s.handleRestore)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens until ctx is cancelled and then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening on %s", s.cfg.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
