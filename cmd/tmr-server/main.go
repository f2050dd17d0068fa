package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/tmr-formulator/internal/config"
	"github.com/iwvelando/tmr-formulator/internal/ration"
	"github.com/iwvelando/tmr-formulator/internal/server"
	"github.com/iwvelando/tmr-formulator/pkg/constants"
	"github.com/iwvelando/tmr-formulator/pkg/validation"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configLocation := flag.String("config", constants.DefaultServerConfigFile, "path to server configuration file")
	address := flag.String("address", "", "listen address override, e.g. :8080")
	maxUploadSize := flag.String("max-upload-size", "", "upload size limit override, e.g. 512K or 2M")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, err := server.LoadConfig(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return 1
	}
	if *address != "" {
		cfg.Address = *address
	}
	if *maxUploadSize != "" {
		size, err := server.ParseSize(*maxUploadSize)
		if err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"invalid max upload size %s\", \"error\": \"%v\"}\n", *maxUploadSize, err)
			return 1
		}
		cfg.SetUploadSizeBytes(size)
	}

	if err := validation.ValidateLogLevel(*logLevel); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"invalid log level\", \"error\": \"%v\"}\n", err)
		return 1
	}

	logger, err := config.NewLogger(cfg.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	catalog, err := cfg.Catalog()
	if err != nil {
		logger.Error("failed to build feed catalog",
			zap.String("op", "main"),
			zap.String("feedLibrary", cfg.FeedLibrary),
			zap.Error(err),
		)
		return 1
	}

	handler, err := server.NewHandler(logger, server.Options{
		MaxUploadSize: cfg.UploadSizeBytes(),
		Version:       version,
		Catalog:       catalog,
		Optimizer:     ration.Options{Timeout: cfg.SolveTimeout},
	})
	if err != nil {
		logger.Error("failed to build handler", zap.String("op", "main"), zap.Error(err))
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("op", "main"),
			zap.String("address", cfg.Address),
			zap.String("version", version),
			zap.Int("feeds", catalog.Len()),
		)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.String("op", "main"), zap.Error(err))
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down server", zap.String("op", "main"), zap.Error(err))
			return 1
		}
		logger.Info("server stopped", zap.String("op", "main"))
	}
	return 0
}
