package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SaeKazamatsuri/BEAVER-server/internal/config"
	"github.com/SaeKazamatsuri/BEAVER-server/internal/logger"
	"github.com/SaeKazamatsuri/BEAVER-server/internal/web"
	"github.com/SaeKazamatsuri/BEAVER-server/pkg/gateway"
	"github.com/SaeKazamatsuri/BEAVER-server/pkg/session"
	"github.com/SaeKazamatsuri/BEAVER-server/pkg/stamp"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the comment relay server",
	Long: `Start the comment relay server. Browser clients connect over WebSocket,
join a named session, receive its history, and relay comments to every
member of the room.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer lg.Close()
	log := lg.GetZerolog()

	serverID := uuid.NewString()
	log.Info().
		Str("serverId", serverID).
		Str("addr", cfg.Addr()).
		Msg("BEAVER server starting")

	store, err := session.OpenStore(cfg.DatabasePath(), log)
	if err != nil {
		return fmt.Errorf("failed to open comment store: %w", err)
	}
	defer store.Close()

	registry := session.NewRegistry(store.ForKey, log)
	catalog := stamp.NewCatalog(cfg.Stamps.Dir, cfg.Stamps.URLPrefix)

	gw := gateway.New(gateway.Config{
		Registry: registry,
		Catalog:  catalog,
		Logger:   log,
	})

	webServer, err := web.NewServer(web.Config{
		Registry: registry,
		Catalog:  catalog,
		Gateway:  gw,
		ServerID: serverID,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: webServer.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("BEAVER server stopped")
	return nil
}
