package attest

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zkattest/zkattest/server"
)

func NewServeCmd() *cobra.Command {
	cfg := &server.ServeConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the attestation proof API server",
		Long: `Start the HTTP API server for building witnesses, generating proofs
and verifying them against the configured trust anchor.`,
		Example: `  # Start server on default port
  zkattest serve --anchor intermediate.pem

  # Start with custom settings
  zkattest serve --anchor intermediate.pem --host 0.0.0.0 --port 9090 --assets-dir ./setup

  # Compile unseen shapes on demand
  zkattest serve --anchor intermediate.pem --compile-missing

  # Production deployment with TLS
  zkattest serve --anchor intermediate.pem --host 0.0.0.0 --port 443 --enable-tls \
    --cert-file /etc/ssl/cert.pem --key-file /etc/ssl/key.pem`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run(cfg)
		},
	}

	// Server flags
	cmd.Flags().StringVar(&cfg.Host, "host", "localhost", "Host to bind to")
	cmd.Flags().IntVarP(&cfg.Port, "port", "p", 8080, "Port to listen on")

	// Pipeline flags
	cmd.Flags().StringVar(&cfg.AnchorPath, "anchor", "", "Trust anchor PEM file")
	cmd.Flags().StringVarP(&cfg.AssetsDir, "assets-dir", "d", "./setup", "Directory containing compiled circuits")
	cmd.Flags().BoolVar(&cfg.CompileMissing, "compile-missing", false, "Compile circuits for unseen shapes on demand")
	cmd.Flags().StringSliceVar(&cfg.Preload, "shapes", []string{}, "Specific shapes to load (comma-separated, empty = all compiled)")
	cmd.Flags().IntVar(&cfg.EnvelopeCap, "envelope-cap", 0, "Envelope buffer capacity override")
	cmd.Flags().IntVar(&cfg.SignedBodyCap, "body-cap", 0, "Certificate body buffer capacity override")
	cmd.Flags().IntVar(&cfg.RepoNameCap, "repo-cap", 0, "Repository name buffer capacity override")
	cmd.MarkFlagRequired("anchor")

	// Performance flags
	cmd.Flags().Int64Var(&cfg.MaxRequestSize, "max-request-size", 10*1024*1024, "Maximum request body size in bytes")
	cmd.Flags().DurationVar(&cfg.ReadTimeout, "read-timeout", 15*time.Second, "HTTP read timeout")
	cmd.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", 120*time.Second, "HTTP write timeout (proof generation can be slow)")
	cmd.Flags().DurationVar(&cfg.IdleTimeout, "idle-timeout", 120*time.Second, "HTTP idle timeout")
	cmd.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")

	// Security flags
	cmd.Flags().BoolVar(&cfg.EnableCORS, "enable-cors", true, "Enable CORS middleware")
	cmd.Flags().StringSliceVar(&cfg.CorsOrigins, "cors-origins", []string{"*"}, "Allowed CORS origins")

	// Observability flags
	cmd.Flags().BoolVar(&cfg.EnablePprof, "enable-pprof", false, "Enable pprof endpoints (debug only)")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&cfg.LogFormat, "log-format", "text", "Log format (text, json)")

	// TLS flags
	cmd.Flags().BoolVar(&cfg.EnableTLS, "enable-tls", false, "Enable TLS/HTTPS")
	cmd.Flags().StringVar(&cfg.CertFile, "cert-file", "", "TLS certificate file")
	cmd.Flags().StringVar(&cfg.KeyFile, "key-file", "", "TLS private key file")

	return cmd
}
