package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arloliu/mdwire/internal/config"
	"github.com/arloliu/mdwire/internal/logging"
	"github.com/arloliu/mdwire/internal/metrics"
	"github.com/arloliu/mdwire/tape"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Replay
	server   *http.Server

	configPath  string
	tapePath    string
	logLevel    string
	metricsAddr string
	location    string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tapectl",
		Short:         "Inspect and replay market-data tapes",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (.toml, .yaml)")
	flags.StringVarP(&a.tapePath, "tape", "t", "", "tape file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.StringVar(&a.location, "location", "", "IANA time zone of the tape day")

	root.AddCommand(
		newInfoCmd(a),
		newTickersCmd(a),
		newDumpCmd(a),
		newSampleCmd(a),
		newPageCmd(a),
		newGenCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.cfg = config.Default()
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	if a.tapePath != "" {
		a.cfg.Tape = a.tapePath
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.metricsAddr != "" {
		a.cfg.Metrics.Addr = a.metricsAddr
	}
	if a.location != "" {
		a.cfg.Location = a.location
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	lc := a.cfg.Logging()
	lc.Out = cmd.ErrOrStderr()
	a.logger = logging.New("tapectl", lc)

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewReplay(a.registry)
	if a.cfg.Metrics.Addr != "" {
		a.serveMetrics(a.cfg.Metrics.Addr)
	}

	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	a.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	a.logger.Info().Str("addr", addr).Msg("serving metrics")
}

func (a *app) teardown() error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return a.server.Shutdown(ctx)
}

// openStore loads the configured tape.
func (a *app) openStore() (*tape.Store, error) {
	if a.cfg.Tape == "" {
		return nil, fmt.Errorf("no tape given; use --tape or the config file")
	}
	loc, err := a.cfg.TimeLocation()
	if err != nil {
		return nil, err
	}

	return tape.Open(a.cfg.Tape, tape.WithLocation(loc), tape.WithStoreLogger(a.logger))
}

// newReplayer wires a replayer to the app's logger and metrics.
func (a *app) newReplayer(store *tape.Store, sink tape.Sink, reverse bool) (*tape.Replayer, error) {
	dir := tape.Chronological
	if reverse || a.cfg.Reverse() {
		dir = tape.Reverse
	}

	return tape.NewReplayer(store, sink,
		tape.WithDirection(dir),
		tape.WithLogger(a.logger),
		tape.WithMetrics(a.metrics),
	)
}
