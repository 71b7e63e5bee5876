package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/urlguard/config"
	"github.com/c360studio/urlguard/metrics"
	"github.com/c360studio/urlguard/natsrpc"
	"github.com/c360studio/urlguard/server"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		overrides config.Config
		noWatch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP validation API and optional NATS responder",
		Long: `Serve the validation API over HTTP and, when nats.url is set or
--nats-embedded is given, answer requests over NATS as well.

Policy changes in the loaded config files are picked up without a restart.
Listener settings (addresses, NATS connection) apply on the next start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, &overrides, !noWatch)
		},
	}

	cmd.Flags().StringVar(&overrides.Server.Addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&overrides.NATS.URL, "nats-url", "", "NATS server URL (overrides nats.url)")
	cmd.Flags().BoolVar(&overrides.NATS.Embedded, "nats-embedded", false, "Run an in-process NATS server")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload config files on change")
	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, overrides *config.Config, watch bool) error {
	logger := slog.Default()

	cfg, loader, err := loadConfig(flags)
	if err != nil {
		return err
	}
	cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder := config.NewHolder(cfg)
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	g, ctx := errgroup.WithContext(ctx)
	// Everything that can fail to set up is set up before anything runs.
	var runners []func() error

	if cfg.NATS.Enabled() {
		url := cfg.NATS.URL
		if cfg.NATS.Embedded {
			ns, err := natsrpc.StartEmbedded()
			if err != nil {
				return err
			}
			defer ns.Shutdown()
			url = ns.ClientURL()
			logger.Info("Embedded NATS server started", "url", url)
		}

		nc, err := natsrpc.Connect(config.NATSConfig{URL: url}, logger)
		if err != nil {
			return err
		}
		defer nc.Close()

		responder := natsrpc.NewResponder(cfg.NATS.SubjectPrefix, holder, m, logger)
		runners = append(runners, func() error { return responder.Serve(ctx, nc, cfg.NATS.Queue) })
	}

	if sources := loader.Sources(); watch && len(sources) > 0 {
		reload := func() (*config.Config, error) {
			next, err := loader.Load()
			if err != nil {
				return nil, err
			}
			next.Merge(overrides)
			if err := next.Validate(); err != nil {
				return nil, err
			}
			return next, nil
		}
		w, err := config.NewWatcher(sources, reload, holder, logger)
		if err != nil {
			return err
		}
		w.OnReload = func(*config.Config) { m.RecordReload(true) }
		w.OnError = func(error) { m.RecordReload(false) }
		runners = append(runners, func() error { return w.Run(ctx) })
	}

	srv := server.New(holder, server.WithMetrics(m, reg), server.WithLogger(logger))
	runners = append(runners, func() error { return srv.ListenAndServe(ctx) })
	for _, run := range runners {
		g.Go(run)
	}

	logger.Info("urlguard ready", "version", Version, "addr", cfg.Server.Addr, "nats", cfg.NATS.Enabled())

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("urlguard shutdown complete")
	return nil
}
