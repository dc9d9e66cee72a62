package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/app"
	"github.com/rovshanmuradov/driftoor/internal/config"
	"github.com/rovshanmuradov/driftoor/internal/logger"
	"github.com/rovshanmuradov/driftoor/internal/ui"
	"github.com/rovshanmuradov/driftoor/internal/ui/screen"
	"github.com/rovshanmuradov/driftoor/internal/ui/state"
	"github.com/rovshanmuradov/driftoor/internal/wallet"
)

var _ ui.ServiceProvider = (*app.Service)(nil)

const (
	logBufferSize      = 1000
	logFlushInterval   = 5 * time.Second
	cacheCleanupPeriod = 10 * time.Minute
	cacheMaxAge        = 30 * time.Minute
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Буфер логов для экрана логов; собственный логгер буфера не должен писать в сам буфер
	spillPath := filepath.Join(filepath.Dir(cfg.LogFile), "tui_spill.log")
	logBuffer, err := logger.NewLogBuffer(logBufferSize, spillPath, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to create log buffer: %v", err)
	}
	defer func() {
		_ = logBuffer.Close()
	}()
	stopFlush := logBuffer.StartPeriodicFlush(logFlushInterval)
	defer close(stopFlush)

	// Initialize logger: TUI mode never writes to stdout
	var fileCfg *logger.FileConfig
	if cfg.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.LogFile)
	}
	appLogger, err := logger.CreateTUILoggerWithBuffer(*debug || cfg.DebugLogging, logBuffer, fileCfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	appLogger.Info("Starting Driftoor TUI", zap.String("env", cfg.Env))

	// Create context with signal handling
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ui.InitBus(ui.Bus, appLogger)
	defer ui.GlobalBus.Close()

	service, err := app.NewService(rootCtx, app.ServiceConfig{
		Config:           cfg,
		Logger:           appLogger,
		UIMessageChannel: ui.Bus,
		Journal:          true,
	})
	if err != nil {
		appLogger.Fatal("Failed to create service", zap.Error(err))
	}
	if err := service.Start(); err != nil {
		appLogger.Fatal("Failed to start service", zap.Error(err))
	}
	defer func() {
		if err := service.Close(); err != nil {
			appLogger.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()

	bridge := ui.NewEventBridge(service.Events(), ui.GlobalBus.Send)
	defer bridge.Close()

	cache := state.NewSnapshotCache(appLogger.Named("snapshot_cache"))
	go cleanupCache(rootCtx, cache)

	// Кошелёк из конфигурации подключаем сразу, не дожидаясь нажатия 'c'
	if cfg.WalletSource() != (wallet.Source{}) {
		go func() {
			if err := service.Connect(service.Context()); err != nil {
				appLogger.Warn("Auto-connect failed", zap.Error(err))
			}
		}()
	}

	handler := ui.NewRecoveryHandler(appLogger, func() (tea.Model, []tea.ProgramOption) {
		root := screen.NewRootModel(service, logBuffer, cache)
		return ui.NewSafeUIWrapper(root, appLogger), []tea.ProgramOption{
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
		}
	})

	go func() {
		<-rootCtx.Done()
		handler.Stop()
	}()

	if err := handler.RunWithRecovery(rootCtx); err != nil {
		appLogger.Error("TUI application failed", zap.Error(err))
	}
	appLogger.Info("Shutting down TUI application")
}

func cleanupCache(ctx context.Context, cache *state.SnapshotCache) {
	ticker := time.NewTicker(cacheCleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.CleanupStale(cacheMaxAge)
		}
	}
}
