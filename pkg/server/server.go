package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/thorli9527/file-cloud/pkg/cache"
	"github.com/thorli9527/file-cloud/pkg/catalog"
	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/models"
	"github.com/thorli9527/file-cloud/pkg/service"
)

const (
	shutdownTimeout = 10
	syncTimeout     = 30
)

// Server exposes the storage operations over HTTP.
type Server struct {
	echo     *echo.Echo
	svc      *service.Service
	catalog  *catalog.Catalog
	sessions cache.Cache[string, models.SessionUser]
	version  string
}

func NewServer(svc *service.Service, cat *catalog.Catalog, sessions cache.Cache[string, models.SessionUser], version string) *Server {
	s := &Server{
		echo:     echo.New(),
		svc:      svc,
		catalog:  cat,
		sessions: sessions,
		version:  version,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the configured HTTP handler, for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	// Start server in a goroutine
	go func() {
		log.Info().
			Str("addr", addr).
			Str("version", s.version).
			Msg("Starting file-cloud server")

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return s.Shutdown()
}

func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	// Gracefully shutdown Echo with a timeout of 10 seconds
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	// Flush filesystem buffers so freshly written chunks survive a host
	// power cut right after shutdown.
	syncCtx, syncCancel := context.WithTimeout(context.Background(), syncTimeout*time.Second)
	defer syncCancel()

	cmd := exec.CommandContext(syncCtx, "sync")
	if err := cmd.Run(); err != nil {
		log.Warn().Err(err).Msg("Sync command failed")
	}

	log.Info().Msg("Shutdown complete")
	return nil
}

func (s *Server) setupRoutes() {
	// Echo configuration
	s.echo.HideBanner = true
	s.echo.HidePort = true
	// Setup middleware with custom logger
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.sessionMiddleware)

	s.echo.POST("/api/login", s.login)
	s.echo.POST("/api/logout", s.logout)

	// Bucket administration
	s.echo.POST("/api/buckets", s.createBucket)
	s.echo.GET("/api/buckets", s.listBuckets)
	s.echo.GET("/api/buckets/:id", s.getBucket)
	s.echo.PUT("/api/buckets/:id", s.updateBucket)
	s.echo.DELETE("/api/buckets/:id", s.deleteBucket)

	// User administration
	s.echo.POST("/api/users", s.createUser)
	s.echo.GET("/api/users", s.listUsers)
	s.echo.PUT("/api/users/:id/password", s.updateUserPassword)
	s.echo.DELETE("/api/users/:id", s.deleteUser)
	s.echo.PUT("/api/rights", s.grantRight)

	// Directory tree
	s.echo.POST("/api/buckets/:id/dirs", s.mkdir)
	s.echo.GET("/api/buckets/:id/browse", s.browse)
	s.echo.GET("/api/dirs/:id/size", s.dirSize)
	s.echo.GET("/api/dirs/:id/archive", s.downloadDirectory)
	s.echo.DELETE("/api/dirs/:id", s.deleteDirectory)

	// Files
	s.echo.POST("/api/buckets/:id/files", s.uploadFile)
	s.echo.GET("/api/files/:id/download", s.downloadFile)
}
