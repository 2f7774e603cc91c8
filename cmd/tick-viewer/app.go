package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/api"
	"github.com/trade-engine/tick-viewer/internal/config"
	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/metadata"
	"github.com/trade-engine/tick-viewer/internal/remote"
	"github.com/trade-engine/tick-viewer/internal/services"
	"github.com/trade-engine/tick-viewer/internal/sink"
	"github.com/trade-engine/tick-viewer/internal/sink/arrow"
	"github.com/trade-engine/tick-viewer/internal/sink/parquet"
)

type Application struct {
	cfg       *config.Config
	logger    *zap.Logger
	svc       *services.TickService
	refresher *services.ListingRefresher
}

func NewApplication(configPath string) (*Application, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg.Application.LogLevel)
	if err != nil {
		return nil, err
	}

	app := &Application{
		cfg:    cfg,
		logger: logger,
	}

	if err := app.initializeComponents(); err != nil {
		return nil, err
	}

	return app, nil
}

// loadConfig falls back to defaults plus environment overrides when the
// config file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.ParseConfig(nil, nil)
	}
	return config.LoadConfig(path, nil)
}

func (a *Application) initializeComponents() error {
	a.logger.Info("Initializing components", zap.String("backend", a.cfg.Remote.Backend))

	var lister remote.Lister
	switch a.cfg.Remote.Backend {
	case config.BackendLocal:
		lister = remote.NewLocalStore(a.logger, a.cfg.Remote.LocalDir, a.cfg.Remote.PageSize)
	default:
		lister = remote.NewDriveClient(remote.DriveOptions{
			BaseURL:           a.cfg.Remote.BaseURL,
			AccessToken:       a.cfg.Remote.AccessToken,
			Query:             a.cfg.Remote.Query,
			PageSize:          a.cfg.Remote.PageSize,
			Timeout:           a.cfg.Remote.RequestTimeout,
			RequestsPerMinute: a.cfg.Remote.RequestsPerMinute,
		}, a.logger)
	}

	state, err := metadata.LoadRefreshState(a.cfg.Listing.StatePath)
	if err != nil {
		return fmt.Errorf("load refresh state: %w", err)
	}

	classifier := services.NewFileClassifier(a.cfg.Listing.FilePrefix, a.cfg.Listing.VariantMarker)
	cache := services.NewListingCache(a.logger, lister, classifier, services.ListingCacheOptions{
		Source:    a.cfg.Remote.Backend,
		TTL:       a.cfg.Listing.TTL,
		MaxPages:  a.cfg.Remote.MaxPages,
		Timeout:   a.cfg.Remote.RequestTimeout,
		State:     state,
		StatePath: a.cfg.Listing.StatePath,
	})

	a.refresher = services.NewListingRefresher(a.logger, cache, services.SystemClock{}, a.cfg.Listing.WarmInterval)

	a.svc = services.NewTickService(a.logger, services.TickServiceDeps{
		Cache:        cache,
		Lister:       lister,
		Normalizer:   services.NewRowNormalizer(a.cfg.Normalizer.PriceColumn),
		Exporter:     a.newExporter(),
		State:        state,
		Clock:        services.SystemClock{},
		FetchTimeout: a.cfg.Remote.RequestTimeout,
	})

	a.logger.Info("Components initialized successfully")
	return nil
}

func (a *Application) newExporter() sink.Exporter {
	if a.cfg.Export.Format == config.FormatParquet {
		return parquet.NewWriter(a.logger, a.cfg.Export.Dir)
	}
	return arrow.NewWriter(a.logger, a.cfg.Export.Dir)
}

// Serve runs the HTTP API until SIGINT or SIGTERM.
func (a *Application) Serve() error {
	a.logger.Info("Starting tick viewer",
		zap.String("version", a.cfg.Application.Version),
		zap.String("addr", a.cfg.Server.Addr),
		zap.Duration("listing_ttl", a.cfg.Listing.TTL))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go a.refresher.Run(ctx)

	server := api.NewServer(api.ServerOptions{
		Addr:         a.cfg.Server.Addr,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}, a.svc, a.logger)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	a.logger.Info("Application stopped")
	return nil
}

// List prints the filtered listing as JSON.
func (a *Application) List(strategy, startDate, endDate string) error {
	q, err := buildQuery(strategy, startDate, endDate)
	if err != nil {
		return err
	}

	files, err := a.svc.ListFiles(context.Background(), q)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, domain.ListingOf(files))
}

// Data prints the normalized records of one file as JSON.
func (a *Application) Data(fileID, output string) error {
	if fileID == "" {
		return errors.New("-file-id is required")
	}
	result, err := a.svc.LoadRecords(context.Background(), fileID)
	if err != nil {
		return err
	}
	return writeRecords(os.Stdout, result.Records, output)
}

// Export writes the normalized records of one file in the configured format.
func (a *Application) Export(fileID string) error {
	if fileID == "" {
		return errors.New("-file-id is required")
	}
	path, err := a.svc.Export(context.Background(), fileID)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func buildQuery(strategy, startDate, endDate string) (services.FileQuery, error) {
	var q services.FileQuery
	s, err := domain.ParseStrategy(strategy)
	if err != nil {
		return q, err
	}
	q.Strategy = s

	if startDate != "" {
		if q.Start, err = time.Parse("2006-01-02", startDate); err != nil {
			return q, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if endDate != "" {
		if q.End, err = time.Parse("2006-01-02", endDate); err != nil {
			return q, fmt.Errorf("invalid end date: %w", err)
		}
	}
	return q, nil
}

func createLogger(level string) (*zap.Logger, error) {
	var config zap.Config

	switch level {
	case "debug":
		config = zap.NewDevelopmentConfig()
	case "info":
		config = zap.NewProductionConfig()
	case "warn":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config = zap.NewProductionConfig()
	}

	// stdout is reserved for command output in list/data/export modes
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build()
}
