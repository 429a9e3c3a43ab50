package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"adscout/internal/adapters/apify"
	"adscout/internal/adapters/httpapi"
	"adscout/internal/adapters/localstorage"
	"adscout/internal/core/domain"
	"adscout/internal/platform/config"
	"adscout/internal/platform/logging"
	"adscout/internal/platform/otel"
	"adscout/internal/service"
)

const serviceName = "adscout"

type deps struct {
	cfg          config.Config
	logger       *zap.Logger
	orchestrator *service.Orchestrator
	shutdown     func(context.Context) error
}

func setup(c *cli.Context) (*deps, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		return nil, err
	}

	shutdown, err := otel.Setup(c.Context, serviceName, cfg.OTelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	opts := service.Options{
		PollInterval: cfg.PollInterval,
		PollBudget:   cfg.PollBudget,
		CacheTTL:     cfg.CacheTTL,
		Logger:       logger,
	}
	if cfg.HasCredentials() {
		client, err := apify.NewClient(apify.Options{
			Token:   cfg.APIToken,
			BaseURL: cfg.BaseURL,
			ActorID: cfg.ActorID,
			Timeout: cfg.HTTPTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		opts.Client = client
	} else {
		logger.Warn("APIFY_API_TOKEN not set, scrapes will return synthetic data")
	}

	return &deps{
		cfg:          cfg,
		logger:       logger,
		orchestrator: service.NewOrchestrator(opts),
		shutdown:     shutdown,
	}, nil
}

func (rt *deps) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.shutdown(ctx); err != nil {
		rt.logger.Warn("trace shutdown", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

func scrapeAction(c *cli.Context) error {
	brand := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(brand) == "" {
		return errors.New("usage: adscout scrape [flags] <brand>")
	}
	format := c.String("format")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q", format)
	}

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	// First interrupt stops the remote run and keeps whatever it collected.
	// A second one cancels outright.
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		rt.logger.Info("interrupt received, stopping active run")
		rt.orchestrator.AbortActiveRun(context.WithoutCancel(ctx))
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	req := domain.ScrapeRequest{
		BrandName:        brand,
		SourceURL:        c.String("source-url"),
		TargetCount:      c.Int("count"),
		ImpressionPeriod: domain.ImpressionPeriod(c.String("impressions")),
		StartedWithin:    domain.StartedWithin(c.String("started")),
		Country:          c.String("country"),
	}
	out := rt.orchestrator.Run(ctx, req)
	rt.logger.Info("scrape complete",
		zap.String("source", string(out.Source)),
		zap.String("reason", string(out.Reason)),
		zap.Int("ads", out.Result.TotalCount),
	)

	if err := writeResult(c.App.Writer, format, out.Result); err != nil {
		return err
	}

	if dir := c.String("save-dir"); dir != "" {
		path, err := localstorage.NewLocalStorage(dir).SaveScrape(context.WithoutCancel(ctx), req, out.Result)
		if err != nil {
			return fmt.Errorf("archive scrape: %w", err)
		}
		rt.logger.Info("scrape archived", zap.String("path", path))
	}
	return nil
}

func writeResult(w io.Writer, format string, res *domain.ScrapeResult) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func serveAction(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	addr := rt.cfg.HTTPAddr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(rt.orchestrator, rt.logger, rt.cfg.PollBudget+time.Minute),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")
	rt.orchestrator.AbortActiveRun(context.Background())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
