// Command survserve serves a saved DiscreteTimeEnsemble over HTTP.
//
// Settings are read from the environment, optionally through a .env file:
//
//	GOSURV_MODEL_PATH=out/ensemble.gob
//	GOSURV_ADDR=:8080
//	GOSURV_WORKERS=4
//	GOSURV_LOG_LEVEL=info
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/pkg/log"
	"github.com/YuminosukeSato/gosurv/server"
	"github.com/YuminosukeSato/gosurv/sklearn/survival"
)

const shutdownTimeout = 10 * time.Second

type config struct {
	ModelPath string
	Addr      string
	Workers   int
	LogLevel  string
}

func loadConfig() (config, error) {
	_ = godotenv.Load()

	cfg := config{
		ModelPath: os.Getenv("GOSURV_MODEL_PATH"),
		Addr:      os.Getenv("GOSURV_ADDR"),
		LogLevel:  os.Getenv("GOSURV_LOG_LEVEL"),
	}
	if cfg.ModelPath == "" {
		return cfg, errors.New("GOSURV_MODEL_PATH is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if v := os.Getenv("GOSURV_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "GOSURV_WORKERS=%q", v)
		}
		cfg.Workers = n
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	log.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.GetLogger().Error("invalid configuration", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.GetLogger().Error("survserve failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	logger := log.GetLogger().With(log.ComponentKey, "survserve")

	model, err := survival.Load(cfg.ModelPath, survival.WithWorkers(cfg.Workers))
	if err != nil {
		return err
	}
	logger.Info("Model loaded",
		"path", cfg.ModelPath,
		log.ModelNameKey, model.Name(),
		log.NBinsKey, len(model.TimeBins()),
		log.FeaturesKey, model.NFeatures(),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(model).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
