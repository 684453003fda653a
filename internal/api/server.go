// Package api serves the bridge over a small local HTTP surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"scanbridge/internal/logger"
	"scanbridge/internal/service"
)

// Config controls the HTTP listener.
type Config struct {
	Listen string `yaml:"listen"`
	Mode   string `yaml:"mode"`
}

// DefaultConfig listens on loopback only.
func DefaultConfig() Config {
	return Config{Listen: "127.0.0.1:8765", Mode: gin.ReleaseMode}
}

// Validate checks the listen address and gin mode.
func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("api.listen: %w", err)
	}
	switch c.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("api.mode must be debug, release or test, got %q", c.Mode)
	}
}

// Server exposes a service over HTTP.
type Server struct {
	svc *service.Service
	cfg Config
	log *log.Logger
}

// NewServer creates a server for svc.
func NewServer(svc *service.Service, cfg Config) *Server {
	return &Server{svc: svc, cfg: cfg, log: logger.Named("api")}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	mode := s.cfg.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	if logger.DefaultLogger.GetLevel() == log.DebugLevel {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	engine := gin.New()
	engine.Use(s.requestLogger(), gin.Recovery())

	api := engine.Group("/api")
	{
		api.GET("/scanners", s.handleScanners)
		api.GET("/snapshots/:id", s.handleSnapshot)
		api.POST("/snapshots", s.handleImport)
		api.POST("/scan", s.handleScan)
		api.GET("/errors/:code", s.handleError)
	}
	return engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	server := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.log.Infof("API available at http://%s/api", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			s.log.Debug("request", "method", c.Request.Method, "path", c.Request.URL.Path,
				"status", c.Writer.Status(), "elapsed", time.Since(start).Round(time.Millisecond))
		}
	}
}
