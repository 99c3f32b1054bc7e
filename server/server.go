// Package server exposes the attestation pipeline over HTTP: witness
// construction, proving and verification against a configured trust
// anchor.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zkattest/zkattest/cert"
	"github.com/zkattest/zkattest/server/api"
	"github.com/zkattest/zkattest/witness"
)

type ServeConfig struct {
	// Server settings
	Host string
	Port int

	// Pipeline settings
	AnchorPath     string
	AssetsDir      string
	CompileMissing bool
	Preload        []string // Shape keys to load at startup (empty = all compiled)

	// Capacity overrides; zero keeps the default
	EnvelopeCap   int
	SignedBodyCap int
	RepoNameCap   int

	// Performance settings
	MaxRequestSize  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Security settings
	EnableCORS  bool
	CorsOrigins []string

	// Observability
	EnablePprof bool
	LogLevel    string
	LogFormat   string // "json" or "text"

	// TLS settings
	EnableTLS bool
	CertFile  string
	KeyFile   string
}

func Run(cfg *ServeConfig) error {
	if err := validateServeConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := SetupLogger(cfg.LogLevel, cfg.LogFormat)

	anchor, err := cert.LoadAnchorPEM(cfg.AnchorPath)
	if err != nil {
		return fmt.Errorf("failed to load trust anchor: %w", err)
	}
	builder := witness.NewBuilder(anchor)
	if cfg.EnvelopeCap > 0 {
		builder.Caps.Envelope = cfg.EnvelopeCap
	}
	if cfg.SignedBodyCap > 0 {
		builder.Caps.SignedBody = cfg.SignedBodyCap
	}
	if cfg.RepoNameCap > 0 {
		builder.Caps.RepoName = cfg.RepoNameCap
	}

	registry := api.NewRegistry()
	if err := loadShapes(registry, cfg, logger); err != nil {
		return fmt.Errorf("failed to load circuits: %w", err)
	}

	server := api.NewServer(builder, registry, cfg.AssetsDir, cfg.CompileMissing)
	r := setupRouter(server, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", addr, "tls", cfg.EnableTLS)

		var err error
		if cfg.EnableTLS {
			err = httpServer.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	logger.Info("Shutting down server gracefully...")
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// loadShapes preloads compiled circuits. An empty assets directory is
// fine when on-demand compilation is enabled.
func loadShapes(registry *api.Registry, cfg *ServeConfig, logger Logger) error {
	keys := cfg.Preload
	if len(keys) == 0 {
		var err error
		keys, err = api.CompiledShapes(cfg.AssetsDir)
		if err != nil {
			return err
		}
	}

	loaded := 0
	for _, key := range keys {
		if _, err := registry.LoadShape(cfg.AssetsDir, key); err != nil {
			logger.Warn("Failed to load shape", "shape", key, "error", err)
			continue
		}
		loaded++
		logger.Info("Loaded shape", "shape", key)
	}

	if loaded == 0 && !cfg.CompileMissing {
		logger.Warn("No compiled shapes found; prove requests will fail",
			"assets_dir", cfg.AssetsDir)
	}
	return nil
}

func validateServeConfig(cfg *ServeConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}

	if cfg.AnchorPath == "" {
		return fmt.Errorf("anchor file is required")
	}
	if _, err := os.Stat(cfg.AnchorPath); err != nil {
		return fmt.Errorf("anchor file not found: %s", cfg.AnchorPath)
	}

	if cfg.EnableTLS {
		if cfg.CertFile == "" || cfg.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert-file or key-file not provided")
		}
		if _, err := os.Stat(cfg.CertFile); err != nil {
			return fmt.Errorf("cert file not found: %s", cfg.CertFile)
		}
		if _, err := os.Stat(cfg.KeyFile); err != nil {
			return fmt.Errorf("key file not found: %s", cfg.KeyFile)
		}
	}

	if err := os.MkdirAll(cfg.AssetsDir, 0o755); err != nil {
		return fmt.Errorf("cannot create assets directory: %w", err)
	}

	return nil
}
