package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/marmos91/sdbus/internal/adminapi"
	"github.com/marmos91/sdbus/internal/config"
	"github.com/marmos91/sdbus/internal/creds"
	"github.com/marmos91/sdbus/internal/logger"
	"github.com/marmos91/sdbus/internal/metrics"
	"github.com/marmos91/sdbus/internal/telemetry"
	"github.com/marmos91/sdbus/internal/validate"
	"github.com/marmos91/sdbus/internal/wire"
	"github.com/marmos91/sdbus/pkg/busobj"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to a bus and serve the object tree until signalled to stop",
	Long: `serve dials the configured D-Bus transport, builds a dispatch
engine from the configured wire/credentials/validation adapters, and
processes method calls until interrupted.

Examples:
  sdbusd serve
  sdbusd serve --config /etc/sdbusd/sdbusd.yaml
  SDBUSD_BUS_ADDRESS=session sdbusd serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "sdbusd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:      cfg.Telemetry.Profiling.Enabled,
		Endpoint:     cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes: cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metrics.InitRegistry(reg)
		metricsServer = metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), reg)
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	}

	var policyWatcher *config.PolicyWatcher
	if cfg.Capability.PolicyPath != "" {
		policyWatcher, err = config.WatchCapabilityPolicy(cfg.Capability.PolicyPath, cfg.Capability.WatchForChanges, logger.With("component", "capability_policy"))
		if err != nil {
			logger.Warn("capability policy not loaded, falling back to CAP_SYS_ADMIN default", "path", cfg.Capability.PolicyPath, "error", err)
		} else {
			defer policyWatcher.Close()
			logger.Info("capability policy loaded", "path", cfg.Capability.PolicyPath, "rules", len(policyWatcher.Current().Rules))
		}
	}

	conn, err := wire.Dial(cfg.Bus.Address)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer conn.Close()
	logger.Info("connected to bus", "address", cfg.Bus.Address)

	if err := wire.RequestName(conn, cfg.Bus.Name); err != nil {
		return err
	}

	credsProvider := buildCredentialsProvider(cfg)

	engineOpts := []busobj.EngineOption{
		busobj.WithMetrics(metrics.NewDispatchMetrics()),
		busobj.WithTracer(telemetry.NewDispatchTracer()),
		busobj.WithLogger(logger.With("component", "engine")),
	}
	if cfg.Bus.Trusted {
		engineOpts = append(engineOpts, busobj.WithTrustedBus())
	}

	engine := busobj.NewEngine(
		validate.New(),
		credsProvider,
		func() busobj.IntrospectionWriter { return wire.NewXMLIntrospectionWriter() },
		engineOpts...,
	)
	engine.SetSignalOrigin(wire.NewSignalOrigin(conn))

	if err := registerDaemonObject(engine, Version, time.Now()); err != nil {
		return fmt.Errorf("failed to register daemon object: %w", err)
	}

	var adminServer *adminapi.Server
	if cfg.Admin.Enabled {
		adminServer, err = adminapi.NewServer(adminapi.Config{
			Addr:          cfg.Admin.Addr,
			JWTSigningKey: cfg.Admin.JWTSigningKey,
		}, engine.Store())
		if err != nil {
			return fmt.Errorf("failed to build admin API server: %w", err)
		}
		go func() {
			if err := adminServer.Start(ctx); err != nil {
				logger.Error("admin API server error", "error", err)
			}
		}()
	}

	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		wire.Serve(ctx, conn, engine, func(err error) {
			logger.Error("dispatch error", "error", err)
		})
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("sdbusd is running, press Ctrl+C to stop")
	<-sigChan
	signal.Stop(sigChan)
	logger.Info("shutdown signal received, draining dispatch loop")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	select {
	case <-serveDone:
	case <-shutdownCtx.Done():
		logger.Warn("dispatch loop did not stop before shutdown timeout")
	}

	if adminServer != nil {
		_ = adminServer.Stop(shutdownCtx)
	}

	logger.Info("sdbusd stopped")
	return nil
}

// buildCredentialsProvider returns a static, userspace-mediated UID-only
// credentials provider. Kernel-mediated resolution (creds.
// KernelCredentialsProvider, backed by SO_PEERCRED and capget(2)) requires
// direct ownership of the underlying *net.UnixConn; a process embedding the
// engine over its own listener should build one and pass it to
// busobj.NewEngine directly instead of going through this CLI entry point.
func buildCredentialsProvider(cfg *config.Config) busobj.CredentialsProvider {
	return creds.NewStaticCredentialsProvider(uint32(os.Getuid()), nil)
}
