package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"

	"calgrid/internal/config"
	"calgrid/internal/datemath"
	"calgrid/internal/engine"
	appLog "calgrid/internal/log"
	"calgrid/internal/metrics"
	"calgrid/internal/store"
	"calgrid/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
}

func main() {
	appLog.Info("calgrid starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"week_start", conf.WeekStart,
		"storage_driver", conf.Storage.Driver,
		"storage_path", conf.Storage.Path,
		"autosave", conf.AutosaveCron,
	)

	persister, cleanup, err := openPersister(conf.Storage)
	if err != nil {
		appLog.Error("failed to open storage", err, "driver", conf.Storage.Driver, "path", conf.Storage.Path)
		os.Exit(1)
	}
	defer cleanup()

	met := metrics.New()

	eng := engine.New(engine.Options{
		WeekStart: datemath.ParseWeekStart(conf.WeekStart),
		Persister: persister,
		Metrics:   met,
	})
	if err := eng.Load(); err != nil {
		appLog.Error("failed to load event store", err)
		os.Exit(1)
	}

	// Autosave is a safety net behind the per-mutation saves: it only
	// writes when a previous save failed and left the store dirty.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(conf.AutosaveCron, eng.Flush); err != nil {
		appLog.Error("invalid autosave schedule", err, "autosave", conf.AutosaveCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, eng, met).Handler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", serveErr)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}

	// Final flush so an earlier failed save is not lost on exit.
	eng.Flush()
	appLog.Info("calgrid exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.Parse()

	return cfg
}

// openPersister builds the configured persistence driver. The returned
// cleanup closes the driver and any underlying database handle.
func openPersister(sc config.StorageConfig) (store.Persister, func(), error) {
	switch sc.Driver {
	case "sqlite":
		db, err := sql.Open("sqlite3", sc.Path)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() {
			s.Close()
			db.Close()
		}, nil
	default:
		s := store.NewFileStore(sc.Path)
		return s, func() { s.Close() }, nil
	}
}
