package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/ccsds-mission-sim/config"
	"github.com/signalsfoundry/ccsds-mission-sim/internal/logging"
	"github.com/signalsfoundry/ccsds-mission-sim/internal/observability"
	"github.com/signalsfoundry/ccsds-mission-sim/mo"
	"github.com/signalsfoundry/ccsds-mission-sim/params"
	"github.com/signalsfoundry/ccsds-mission-sim/sim"
	"github.com/signalsfoundry/ccsds-mission-sim/transport"
)

func main() {
	configPath := flag.String("config", "configs/simulator.yaml", "Path to the simulator YAML configuration")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("path", *configPath), logging.Err(err))
		os.Exit(1)
	}

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(cfg.Metrics.Listen, collector, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	store := params.NewStore(params.DefaultCatalog(), cfg.Store.StalenessWindow.Std(),
		params.WithMetrics(collector),
	)
	health := sim.NewHealthTracker()

	downlink, err := transport.NewUDPSink(cfg.Downlink.Address)
	if err != nil {
		log.Error(ctx, "failed to open downlink", logging.Err(err))
		os.Exit(1)
	}
	defer downlink.Close()

	archive := transport.NewArchive(cfg.Archive.Depth)
	sink := transport.Fanout(downlink, archive)

	gen := sim.New(
		sim.Config{
			Tick:               cfg.Sim.Tick.Std(),
			APIDBase:           cfg.Sim.APIDBase,
			SourceID:           cfg.Sim.SourceID,
			DestinationID:      cfg.Sim.DestinationID,
			DegradedShift:      cfg.Sim.DegradedShift,
			DegradedWidthScale: cfg.Sim.DegradedWidthScale,
		},
		store, health, sink,
		sim.WithLogger(log),
		sim.WithMetrics(collector),
		sim.WithOrbit(sim.NewOrbit(cfg.Sim.TLELine1, cfg.Sim.TLELine2)),
	)

	handler := mo.NewHandler(
		mo.HandlerConfig{DiagnosticDuration: cfg.Sim.DiagnosticDuration.Std()},
		store, health, gen,
		mo.WithHandlerLogger(log),
		mo.WithHandlerMetrics(collector),
	)

	listener, err := transport.NewCommandListener(cfg.Uplink.Listen, handler,
		transport.WithListenerLogger(log),
	)
	if err != nil {
		log.Error(ctx, "failed to bind uplink", logging.Err(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := listener.Run(stopCtx); err != nil {
			log.Error(ctx, "telecommand listener exited", logging.Err(err))
		}
	}()

	gen.Start(stopCtx)
	log.Info(ctx, "simulator running",
		logging.String("downlink", cfg.Downlink.Address),
		logging.String("uplink", cfg.Uplink.Listen),
		logging.Duration("tick", cfg.Sim.Tick.Std()),
	)

	<-stopCtx.Done()
	log.Info(ctx, "shutting down simulator")

	gen.Stop()
	listener.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(shutdownCtx, shutdownTracing, log)
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
