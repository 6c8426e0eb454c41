package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/api"
	"github.com/prismfin/prism/internal/config"
	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/history"
	"github.com/prismfin/prism/internal/insight"
	"github.com/prismfin/prism/internal/insight/factory"
	"github.com/prismfin/prism/internal/logger"
	"github.com/prismfin/prism/internal/metrics"
	"github.com/prismfin/prism/internal/optimizer"
	"github.com/prismfin/prism/internal/render"
	"github.com/prismfin/prism/internal/session"
	"github.com/prismfin/prism/internal/storage/artifact"
	"github.com/prismfin/prism/internal/synth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prism dashboard server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newRenderer(cfg *config.Config, log *zap.Logger) *render.ChartRenderer {
	opts := make([]render.Option, 0, len(core.Slots())+len(cfg.Render.DisabledSlots))
	for _, slot := range core.Slots() {
		opts = append(opts, render.WithTarget(slot, cfg.Render.Width, cfg.Render.Height))
	}
	for _, slot := range cfg.Render.DisabledSlots {
		opts = append(opts, render.WithoutTarget(core.ChartSlot(slot)))
	}
	return render.NewChartRenderer(log, opts...)
}

func newGenerator(cfg *config.Config, log *zap.Logger) *synth.Generator {
	if cfg.Synth.Seed != 0 {
		return synth.NewSeeded(cfg.Synth.Seed, log)
	}
	return synth.New(log)
}

func newArchiver(cfg *config.Config, log *zap.Logger) (*artifact.Archiver, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	var (
		store artifact.Storage
		err   error
	)
	switch cfg.Archive.Type {
	case "s3":
		store, err = artifact.NewS3(artifact.S3Config{
			Bucket:    cfg.Archive.S3.Bucket,
			Endpoint:  cfg.Archive.S3.Endpoint,
			Region:    cfg.Archive.S3.Region,
			AccessKey: cfg.Archive.S3.AccessKey,
			SecretKey: cfg.Archive.S3.SecretKey,
			Prefix:    cfg.Archive.S3.Prefix,
		})
	default:
		store, err = artifact.NewLocalFS(cfg.Archive.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("creating archive storage: %w", err)
	}
	return artifact.NewArchiver(store, log), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	log.Info("starting prism server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("optimizer", cfg.Optimizer.BaseURL),
	)

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	sessOpts := []session.Option{}
	if reg != nil {
		sessOpts = append(sessOpts, session.WithObserver(reg))
	}
	sess := session.New(newRenderer(cfg, log), newGenerator(cfg, log), log, sessOpts...)
	defer sess.Close()

	client := optimizer.NewClient(optimizer.Config{
		BaseURL: cfg.Optimizer.BaseURL,
		Timeout: cfg.Optimizer.Timeout,
	}, log)

	var insights *insight.Service
	if cfg.Insight.Provider != "" {
		provider, err := factory.New(cfg.Insight)
		if err != nil {
			return fmt.Errorf("creating insight provider: %w", err)
		}
		insights = insight.NewService(provider, log)
		log.Info("insight provider enabled", zap.String("provider", provider.Name()))
	}

	store, err := history.Open(cfg.History.DSN, log)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()
	if _, err := store.Prune(context.Background(), cfg.History.RetentionDays); err != nil {
		log.Warn("history prune failed", zap.Error(err))
	}

	archiver, err := newArchiver(cfg, log)
	if err != nil {
		return err
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	server := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		MetricsPath: metricsPath,
	}, api.Dependencies{
		Session:   sess,
		Optimizer: client,
		Insight:   insights,
		History:   store,
		Archiver:  archiver,
		Metrics:   reg,
	}, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down prism server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
