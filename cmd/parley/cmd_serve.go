package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/telegram"
	"github.com/parleyhq/parley/internal/ticker"
	"github.com/parleyhq/parley/internal/webhook"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the parley daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "parley.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("parley started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"storage_driver", cfg.Storage.Driver,
		"max_concurrent", cfg.Engine.MaxConcurrent,
		"tick_schedule", cfg.Engine.TickSchedule,
		"llm_model", cfg.LLM.Model,
		"pid_file", pidPath,
	)

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		if cfg.Telegram.OrganizationID == "" {
			return fmt.Errorf("telegram.organization_id is required when telegram.token is set")
		}
		adapter, err := telegram.New(cfg.Telegram.Token, a.intake,
			domain.OrganizationID(cfg.Telegram.OrganizationID), slog.Default())
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		go adapter.Start(ctx)
		a.delivery.Register(telegram.ChannelPrefix, adapter.DeliverMessage)
		slog.Info("telegram adapter started", "organization_id", cfg.Telegram.OrganizationID)
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// Scheduler: fires engine ticks on the configured cron schedule.
	tick := ticker.New(a.engine, cfg.Engine.TickSchedule, slog.Default())
	if err := tick.Start(ctx); err != nil {
		return fmt.Errorf("start ticker: %w", err)
	}
	defer tick.Stop()

	// Inbound HTTP: webhook ingestion plus the read API.
	srv := webhook.NewServer(a.intake, a.engine, a.store, slog.Default())
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv,
	}
	go func() {
		slog.Info("http server started", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
