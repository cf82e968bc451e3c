// Package server 提供推文分析的 HTTP 接口
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"tweet-verify/config"
	"tweet-verify/pkg/model"
	"tweet-verify/pkg/service"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	analyzer service.Analyzer
	fallback service.Analyzer
	history  *service.HistoryService
	cfg      *config.ServerConfig
}

// NewServer 创建服务。cfg.MockFallback 为 true 时模型分析失败使用启发式分析
func NewServer(analyzer service.Analyzer, history *service.HistoryService, cfg *config.ServerConfig) *Server {
	s := &Server{
		analyzer: analyzer,
		history:  history,
		cfg:      cfg,
	}
	if cfg.MockFallback {
		s.fallback = service.NewHeuristicAnalyzer()
	}
	return s
}

type AnalyzeRequest struct {
	Text string `json:"text"`
}

type AnalyzeResponse struct {
	ID              string    `json:"id"`
	IsFakeNews      bool      `json:"isFakeNews"`
	ConfidenceScore float64   `json:"confidenceScore"`
	Timestamp       time.Time `json:"timestamp"`
}

type HistoryResponse struct {
	Tweets []model.AnalysisRecord `json:"tweets"`
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to Your Website!")
	})
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	tweets := r.Group("/api/tweets")
	tweets.POST("/analyze", s.Analyze)
	tweets.GET("/history", s.History)

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Page not found.")
	})
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	for _, origin := range s.cfg.AllowOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = s.cfg.AllowOrigins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

func (s *Server) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tweet text is required"})
		return
	}

	ctx := c.Request.Context()
	verdict, err := s.analyzer.Analyze(ctx, req.Text)
	if err != nil {
		if s.fallback == nil {
			zap.S().Errorf("分析推文失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error analyzing tweet: " + err.Error()})
			return
		}
		zap.S().Warnf("模型分析失败，使用启发式分析: %v", err)
		verdict, _ = s.fallback.Analyze(ctx, req.Text)
	}

	record := model.NewAnalysisRecord(req.Text, verdict)
	if err := s.history.Save(ctx, record); err != nil {
		zap.S().Warnf("保存分析记录失败: %v", err)
	}
	c.JSON(http.StatusOK, AnalyzeResponse{
		ID:              record.ID,
		IsFakeNews:      record.IsFakeNews,
		ConfidenceScore: record.ConfidenceScore,
		Timestamp:       record.Timestamp,
	})
}

func (s *Server) History(c *gin.Context) {
	limit := cast.ToInt(c.Query("limit"))
	records, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		zap.S().Errorf("查询分析记录失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching tweet history: " + err.Error()})
		return
	}
	if records == nil {
		records = []model.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, HistoryResponse{Tweets: records})
}

// Run 启动 HTTP 服务，ctx 取消后优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("服务启动, 监听 %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.S().Info("收到退出信号, 正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zap.S().Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
