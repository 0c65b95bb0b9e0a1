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

	"ghostfetch/internal/collector"
	"ghostfetch/internal/collector/nhentai"
	"ghostfetch/internal/metrics"
	"ghostfetch/internal/shared/config"
	"ghostfetch/internal/shared/logger"
)

func main() {
	configPath := flag.String("config", "configs/ghostfetch.ini", "Path to ini config file")
	collectorName := flag.String("collector", nhentai.Name, "Collector to use")
	outDir := flag.String("out", "", "Directory to write downloaded items into (empty: discard)")
	force := flag.Bool("force", false, "Fetch even if the album was already processed")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <album path, e.g. g/333678>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	albumPath := flag.Arg(0)

	// 1. 加载 .ini 配置
	cfg, err := config.LoadIni(*configPath)
	if err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", *configPath, err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Fetch.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.Fetch.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msgf("Metrics server on %s stopped", cfg.Fetch.MetricsAddr)
			}
		}()
		defer srv.Close()
	}

	// 2. 构建 collector 与存储
	nh, err := nhentai.NewFromConfig(cfg.HTTP)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to build collector")
	}
	registry, err := collector.NewRegistry(nh)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to build collector registry")
	}
	c, ok := registry.Get(*collectorName)
	if !ok {
		logger.Fatal().Str("collector", *collectorName).Msgf("Unknown collector, available: %v", registry.Names())
	}

	store, closeStore, err := newStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to open %s storage", cfg.Fetch.Storage)
	}
	defer closeStore()

	// 3. 拉取并消费图集
	rec, fetched, err := process(ctx, c, store, albumPath, fetchOptions{
		Concurrency: cfg.Fetch.Concurrency,
		OutDir:      *outDir,
		Force:       *force,
	})
	if err != nil {
		logger.Error().Err(err).Str("path", albumPath).Msgf("Fetch failed")
		stop()
		closeStore()
		os.Exit(1)
	}
	if fetched && rec.Failed > 0 {
		logger.Warn().Int("failed", rec.Failed).Msgf("%s finished with failed items", rec.Name)
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
