// cmd/snapshot/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/app"
	"github.com/rovshanmuradov/driftoor/internal/config"
	"github.com/rovshanmuradov/driftoor/internal/export"
	"github.com/rovshanmuradov/driftoor/internal/logger"
)

type options struct {
	configPath string
	subAccount int
	format     export.ExportFormat
	out        string
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	subAccount := flag.Int("subaccount", -1, "Subaccount index (default: the stored active one)")
	formatName := flag.String("format", "json", "Output format: json or csv")
	out := flag.String("out", "", "Output file (default: stdout)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	format, err := export.ParseFormat(*formatName)
	if err != nil {
		log.Fatalf("Invalid -format: %v", err)
	}
	if *subAccount > 0xFFFF {
		log.Fatalf("Invalid -subaccount: %d", *subAccount)
	}

	// stdout занят снимком, логи идут в stderr
	appLogger, err := logger.CreatePrettyLogger(*debug)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{configPath: *configPath, subAccount: *subAccount, format: format, out: *out}
	if err := run(ctx, opts, appLogger); err != nil {
		appLogger.Error("Snapshot failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, appLogger *zap.Logger) (err error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.subAccount >= cfg.SubaccountScanLimit {
		return fmt.Errorf("subaccount %d is outside the scan limit %d", opts.subAccount, cfg.SubaccountScanLimit)
	}

	service, err := app.NewService(ctx, app.ServiceConfig{Config: cfg, Logger: appLogger})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, service.Close())
	}()
	if err := service.Start(); err != nil {
		return err
	}

	// Connect включает инициализацию, подписку, поиск субаккаунтов и восстановление активного
	if err := service.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if opts.subAccount >= 0 && uint16(opts.subAccount) != service.ActiveSubaccount() {
		if !service.Switch(ctx, uint16(opts.subAccount)) {
			return fmt.Errorf("switch to subaccount %d failed", opts.subAccount)
		}
	}

	snap, ok := service.RefreshNow(ctx)
	if !ok {
		return errors.New("positions refresh failed")
	}
	if snap.Partial() {
		appLogger.Warn("Snapshot is partial, failed values are exported with status 'failed'")
	}

	var w io.Writer = os.Stdout
	if opts.out != "" {
		f, createErr := os.Create(opts.out)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", opts.out, createErr)
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()
		w = f
	}

	if err := export.Write(w, snap, opts.format); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	appLogger.Info("Snapshot written",
		zap.String("authority", snap.Authority.String()),
		zap.Uint16("sub_account", snap.SubAccount),
		zap.Int("perp_positions", len(snap.Perps)),
		zap.String("format", string(opts.format)))
	return nil
}
