package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fundhive-network/fundhive/internal/api"
	"github.com/fundhive-network/fundhive/internal/daemon"
	"github.com/fundhive-network/fundhive/internal/engine"
	"github.com/fundhive-network/fundhive/internal/infra/bank"
	"github.com/fundhive-network/fundhive/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to config.toml (default ~/.fundhive/config.toml)")
	serveCmd.Flags().String("listen", "", "Override the listen address")
	serveCmd.Flags().Bool("memory", false, "Run without persistence")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the settlement engine HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = daemon.DefaultPath()
	}
	cfg, err := daemon.Load(cfgPath)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.API.Host, cfg.API.Port = splitListen(listen, cfg.API.Port)
	}
	if memory, _ := cmd.Flags().GetBool("memory"); memory {
		cfg.Storage.Path = ""
	}

	// Storage first: the engine restores its state from it at boot.
	var store *sqlite.DB
	if cfg.Storage.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o700); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		if store, err = sqlite.Open(cfg.Storage.Path); err != nil {
			return err
		}
		defer store.Close()
		log.Printf("[serve] storage at %s", cfg.Storage.Path)
	} else {
		log.Printf("[serve] running memory-only, state will not survive restart")
	}

	eng := newEngine(cfg, store)

	server := api.NewServer(eng, Version)
	if cfg.API.Metrics {
		server.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] listening on %s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("[serve] received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// newEngine wires the engine with its host collaborators and restores
// persisted state.
func newEngine(cfg daemon.Config, store *sqlite.DB) *engine.Engine {
	credits := bank.New()
	var persister engine.Persister
	if store != nil {
		persister = store
	}
	eng := engine.New(cfg.EngineConfig(), credits, bank.ReceiptLog{}, persister)

	if store != nil {
		snapshot, err := store.Load()
		if err != nil {
			log.Printf("[serve] state restore failed: %v", err)
			return eng
		}
		eng.Restore(snapshot)
		log.Printf("[serve] restored %d campaigns", len(snapshot.Campaigns))
	}
	return eng
}

// splitListen parses host[:port], keeping the fallback port when the
// address has none.
func splitListen(listen string, fallbackPort int) (string, int) {
	host := listen
	port := fallbackPort
	if i := lastColon(listen); i >= 0 {
		host = listen[:i]
		if _, err := fmt.Sscanf(listen[i+1:], "%d", &port); err != nil {
			port = fallbackPort
		}
	}
	return host, port
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}
