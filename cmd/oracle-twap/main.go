package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/StrathCole/oracle-twap/pkg/config"
	"github.com/StrathCole/oracle-twap/pkg/feeder/poller"
	"github.com/StrathCole/oracle-twap/pkg/feeder/price"
	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/metrics"
	"github.com/StrathCole/oracle-twap/pkg/server/api"
	"github.com/StrathCole/oracle-twap/pkg/server/feed"
	"github.com/StrathCole/oracle-twap/pkg/store"
	"github.com/StrathCole/oracle-twap/pkg/twap"
	"github.com/StrathCole/oracle-twap/pkg/version"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
	noFeed     = flag.Bool("no-feed", false, "Disable the upstream price poller; accept pushed samples only")
	admin      = flag.Bool("admin", false, "Enable the reset endpoint")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("oracle-twap version %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *noFeed {
		cfg.Feed.Enabled = false
	}
	if *admin {
		cfg.Server.Admin = true
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting oracle-twap", "version", version.Version, "entries", len(cfg.Entries))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Component failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	db, err := store.Open(store.Options{Path: cfg.Store.Path, Sync: cfg.Store.Sync}, logger.With("component", "store"))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close record store", "error", err)
		}
	}()

	table := twap.NewTable()
	loaded, err := db.Load(table)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	logger.Info("Records restored", "count", loaded)

	svc := feed.New(table, db, logger.With("component", "feed"))
	if err := svc.Configure(cfg.Entries); err != nil {
		return fmt.Errorf("configure entries: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		metrics.Init()
		g.Go(func() error {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			return metrics.ServeHTTP(ctx, cfg.Metrics.Addr)
		})
	}

	httpServer := api.NewServer(cfg.Server.HTTP.Addr, svc, cfg.Server.Admin, logger.With("component", "http"))
	if cfg.Server.HTTP.TLS.Enabled {
		httpServer.SetTLS(cfg.Server.HTTP.TLS.Cert, cfg.Server.HTTP.TLS.Key)
	}
	g.Go(func() error { return httpServer.Start(ctx) })

	if cfg.Server.WebSocket.Enabled {
		ws := api.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger.With("component", "websocket"))
		svc.Subscribe(ws)
		g.Go(func() error { return ws.Start(ctx) })
	}

	if cfg.Feed.Enabled {
		feedLogger := logger.With("component", "poller", "mode", cfg.Feed.Mode)
		if strings.EqualFold(cfg.Feed.Mode, config.FeedModeStream) {
			s := poller.NewStream(cfg.Feed.WSURL, svc, feedLogger)
			g.Go(func() error { return s.Run(ctx) })
		} else {
			client := price.NewHTTPClient(cfg.Feed.URL, cfg.Feed.Timeout.ToDuration())
			p := poller.New(client, svc, cfg.Feed.Interval.ToDuration(), feedLogger)
			g.Go(func() error { return p.Run(ctx) })
		}
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
