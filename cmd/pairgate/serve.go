package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/pairgate/internal/channels"
	"github.com/nextlevelbuilder/pairgate/internal/channels/discord"
	"github.com/nextlevelbuilder/pairgate/internal/channels/slack"
	"github.com/nextlevelbuilder/pairgate/internal/channels/telegram"
	"github.com/nextlevelbuilder/pairgate/internal/config"
	"github.com/nextlevelbuilder/pairgate/internal/gateway"
	"github.com/nextlevelbuilder/pairgate/internal/gateway/methods"
	pairinghttp "github.com/nextlevelbuilder/pairgate/internal/http"
	"github.com/nextlevelbuilder/pairgate/internal/logger"
	"github.com/nextlevelbuilder/pairgate/internal/pairing"
	"github.com/nextlevelbuilder/pairgate/internal/store"
	"github.com/nextlevelbuilder/pairgate/internal/store/file"
	"github.com/nextlevelbuilder/pairgate/internal/store/pg"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pairing gateway and REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger.Setup(cfg.StateDir)

	// Live config: hot reloads swap the pointer, readers always see a
	// consistent snapshot.
	var liveCfg atomic.Pointer[config.Config]
	liveCfg.Store(cfg)

	pairingStore, err := buildStore(cfg)
	if err != nil {
		return err
	}

	manager := channels.NewManager()
	manager.Register(telegram.New())
	manager.Register(slack.New())
	manager.Register(discord.New())

	workflow := pairing.NewWorkflow(pairingStore, manager, func() (*config.Config, error) {
		return liveCfg.Load(), nil
	})

	server := gateway.NewServer(cfg)
	methods.NewPairingMethods(workflow, server).Register(server.Router())
	server.Mount(cfg.HTTP.PathPrefix, pairinghttp.NewPairingHandler(workflow, liveCfg.Load, cfg.HTTP.PathPrefix))

	if watcher, werr := config.NewWatcher(cfgPath); werr == nil {
		watcher.OnChange(func(next *config.Config) {
			liveCfg.Store(next)
		})
		if werr := watcher.Start(); werr != nil {
			slog.Warn("config watcher not started", "error", werr)
		} else {
			defer watcher.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("gateway shutdown", "error", err)
	}
	// Let in-flight notification attempts finish so failures get logged.
	workflow.Wait()
	return nil
}

func buildStore(cfg *config.Config) (store.PairingStore, error) {
	switch cfg.Store.Backend {
	case "", "file":
		return file.NewFilePairingStore(pairing.NewService(cfg.StorePath())), nil
	case "postgres":
		db, err := pg.OpenDB(cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		pgStore := pg.NewPGPairingStore(db)
		if err := pgStore.Migrate(context.Background()); err != nil {
			return nil, fmt.Errorf("migrate pairing schema: %w", err)
		}
		return pgStore, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
