package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/remi-scorer/internal/api"
	"github.com/wfunc/remi-scorer/internal/config"
	"github.com/wfunc/remi-scorer/internal/database"
	"github.com/wfunc/remi-scorer/internal/logger"
	ws "github.com/wfunc/remi-scorer/internal/websocket"
	"go.uber.org/zap"
)

// Version information, injected at build time
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server process-level wiring
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	hub    *ws.Hub
	router *api.Router
	http   *http.Server
}

func main() {
	var (
		configPath  = flag.String("config", "", "path to the config file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("remi-scorer %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	server.Run()
}

// NewServer initializes storage, the hub and the router
func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.Server.Mode)

	if err := database.Init(&cfg.Database); err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(); err != nil {
			return nil, err
		}
	}

	hub := ws.NewHub(logger.WithModule("realtime"))
	router := api.NewRouter(database.GetDB(), hub, logger.GetLogger())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		hub:    hub,
		router: router,
		http:   httpServer,
	}, nil
}

// Run serves until a shutdown signal arrives
func (s *Server) Run() {
	go s.hub.Run()

	go func() {
		s.logger.Info("server listening",
			zap.String("address", s.http.Addr),
			zap.String("version", Version))

		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("configuration reloaded")
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.Shutdown()
}

// Shutdown drains in-flight requests and closes the database
func (s *Server) Shutdown() {
	s.logger.Info("shutting down")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", zap.Error(err))
	}

	if err := database.Close(); err != nil {
		s.logger.Error("database close failed", zap.Error(err))
	}

	s.logger.Info("server stopped")
}
