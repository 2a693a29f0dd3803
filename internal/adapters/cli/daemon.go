package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/andrescamacho/artifacts-go/internal/adapters/api"
	"github.com/andrescamacho/artifacts-go/internal/adapters/gamedata"
	"github.com/andrescamacho/artifacts-go/internal/adapters/httpapi"
	"github.com/andrescamacho/artifacts-go/internal/adapters/metrics"
	"github.com/andrescamacho/artifacts-go/internal/adapters/persistence/actionlog"
	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/application/routines"
	"github.com/andrescamacho/artifacts-go/internal/application/runtime"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

// NewDaemonCommand creates the daemon command
func NewDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the automation daemon",
		Long: `Start the daemon: one scheduler per configured character, the shared
order board, and the HTTP control surface. Runs until SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoadConfig(configPath)
			return runDaemon(cfg)
		},
	}
}

func runDaemon(cfg *config.Config) error {
	logger := common.NewStdLogger("daemon")

	catalog, err := gamedata.Load(cfg.GameData)
	if err != nil {
		return fmt.Errorf("failed to load game data: %w", err)
	}
	logger.Log("info", "game data loaded", map[string]interface{}{"path": cfg.GameData})

	if err := os.MkdirAll(cfg.Report.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	client := api.NewClient(cfg.API)
	client.SetRecorder(collector)

	actions, err := actionlog.NewRepository(filepath.Join(cfg.Report.Dir, "actions.db"))
	if err != nil {
		return fmt.Errorf("failed to open action log: %w", err)
	}
	defer actions.Close()

	manager := runtime.NewManager(cfg, runtime.Deps{
		Catalog:   catalog,
		API:       client,
		Recorder:  multiRecorder{collector, actions},
		BoardHook: collector.ObserveBoard,
		Logger:    logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start runtime: %w", err)
	}

	server := httpapi.NewServer(cfg.HTTP.Address, manager, cfg.Daemon.GracefulTimeout, registry)
	serverErr := make(chan error, 1)
	go func() {
		logger.Log("info", "control API listening", map[string]interface{}{"address": cfg.HTTP.Address})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Log("info", "shutting down", map[string]interface{}{"signal": sig.String()})
	case err := <-serverErr:
		logger.Log("error", "control API failed", map[string]interface{}{"error": err.Error()})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Daemon.GracefulTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log("error", "control API shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if err := manager.Stop(shutdownCtx, cfg.Daemon.GracefulTimeout); err != nil {
		return fmt.Errorf("failed to stop runtime: %w", err)
	}
	logger.Log("info", "daemon stopped", nil)
	return nil
}

// multiRecorder fans routine dispatch records out to every backend
type multiRecorder []routines.RunRecorder

func (m multiRecorder) RecordRoutineRun(charName, routine string) {
	for _, r := range m {
		r.RecordRoutineRun(charName, routine)
	}
}

func (m multiRecorder) RecordRoutineError(charName, routine string, err error) {
	for _, r := range m {
		r.RecordRoutineError(charName, routine, err)
	}
}
