package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/BioHazard786/Warpchat/internal/config"
	"github.com/BioHazard786/Warpchat/internal/logging"
	"github.com/BioHazard786/Warpchat/internal/server"
	"github.com/BioHazard786/Warpchat/internal/signaling"
	"github.com/BioHazard786/Warpchat/internal/version"
)

var serveOpts config.Options

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling server",
	Long: `Run the websocket signaling server.

Examples:
  warpchat serve
  warpchat serve --addr :8080 --log-level debug
  PORT=5000 ALLOWED_ORIGINS=https://chat.example warpchat serve
  warpchat serve --rooms-access off`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveOpts)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServer(ctx, cfg)
	},
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.AllowsAnyOrigin() {
		logger.Warn("accepting websocket upgrades from any origin; set ALLOWED_ORIGINS in production")
	}
	if cfg.RoomsAccess == config.RoomsPublic {
		logger.Warn("GET /rooms is public and lists every online user; set ROOMS_ACCESS=local or off in production")
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	return serve(ctx, cfg, ln, logger)
}

// serve runs the hub and the HTTP server on ln until ctx is done, then shuts
// both down.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener, logger *slog.Logger) error {
	hub := signaling.NewHub(logger)
	srv := &http.Server{
		Handler:           server.New(hub, cfg, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting signaling server",
		"addr", ln.Addr().String(),
		"version", version.Version,
		"send_buffer", cfg.SendBuffer,
		"max_message_size", cfg.MaxMessageSize,
		"allowed_origins", cfg.AllowedOrigins,
		"rooms_access", cfg.RoomsAccess,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.Addr, "addr", "a", "", "Listen address (env ADDR or PORT, default :5000)")
	f.StringVarP(&serveOpts.LogLevel, "log-level", "l", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	f.StringVar(&serveOpts.LogFormat, "log-format", "", "Log format: text or json (env LOG_FORMAT)")
	f.StringVar(&serveOpts.AllowedOrigins, "allowed-origins", "", "Comma separated websocket origins, * for any (env ALLOWED_ORIGINS)")
	f.IntVar(&serveOpts.SendBuffer, "send-buffer", 0, "Outbound messages queued per connection (env SEND_BUFFER)")
	f.Int64Var(&serveOpts.MaxMessageSize, "max-message-size", 0, "Largest accepted frame in bytes (env MAX_MESSAGE_SIZE)")
	f.StringVar(&serveOpts.RoomsAccess, "rooms-access", "", "Who may read GET /rooms: off, local or public (env ROOMS_ACCESS, default local)")
	f.DurationVar(&serveOpts.ShutdownTimeout, "shutdown-timeout", 0, "Grace period for open requests on shutdown (env SHUTDOWN_TIMEOUT)")
}
