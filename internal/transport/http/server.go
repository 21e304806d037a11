package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/store/runstore"
)

// Server 提供分析任务的 HTTP 接口：创建运行、查询历史、取报告。
type Server struct {
	addr   string
	router *gin.Engine
	jobs   *Jobs
	runs   *runstore.Store
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr      string
	Runs      *runstore.Store
	Execute   ExecuteFunc
	QueueSize int
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runs == nil || cfg.Execute == nil {
		return nil, errors.New("http server requires run store and execute func")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		addr:   cfg.Addr,
		router: router,
		jobs:   NewJobs(cfg.Execute, cfg.QueueSize),
		runs:   cfg.Runs,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group("/api")
	api.POST("/runs", s.handleCreateRun)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/runs/:id/report", s.handleRunReport)
	return s, nil
}

// Start 启动任务 worker 与 HTTP 监听，ctx 取消后优雅关停。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP 服务已启动: %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	go func() {
		if err := s.jobs.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnf("任务 worker 退出: %v", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Router 暴露底层路由（测试用）。
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) handleCreateRun(c *gin.Context) {
	var req RunRequest
	// 不带 body 的 POST 全用默认参数
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Start != "" {
		if _, err := time.Parse("2006-01-02", req.Start); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start 必须为 YYYY-MM-DD"})
			return
		}
	}
	if req.End != "" {
		if _, err := time.Parse("2006-01-02", req.End); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end 必须为 YYYY-MM-DD"})
			return
		}
	}
	id, err := s.jobs.Submit(req)
	if err != nil {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": string(JobQueued)})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	recs, err := s.runs.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": recs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id := c.Param("id")
	rec, err := s.runs.Get(c.Request.Context(), id)
	if err == nil {
		c.JSON(http.StatusOK, rec)
		return
	}
	if !errors.Is(err, runstore.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// 入库之前的任务只有内存状态
	if status, errMsg, ok := s.jobs.State(id); ok {
		c.JSON(http.StatusOK, gin.H{"id": id, "status": string(status), "error": errMsg})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
}

func (s *Server) handleRunReport(c *gin.Context) {
	id := c.Param("id")
	rec, err := s.runs.Get(c.Request.Context(), id)
	if errors.Is(err, runstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec.ReportPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has no report"})
		return
	}
	if _, err := os.Stat(rec.ReportPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report file missing"})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.File(rec.ReportPath)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
