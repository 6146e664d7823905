package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vehicle-interface/internal/canbus"
	"vehicle-interface/internal/config"
	"vehicle-interface/internal/core"
	"vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/logger"
	"vehicle-interface/internal/messaging"
	"vehicle-interface/internal/store"
	"vehicle-interface/internal/telemetry"
	"vehicle-interface/internal/vehicle"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Detect the bus layout and serve cycle inputs from Redis",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := config.LoadService(opts.v)
			if err != nil {
				return err
			}
			l, err := newLogger(cmd.OutOrStdout(), svc.LogLevel)
			if err != nil {
				return err
			}
			return runService(cmd.Context(), svc, l)
		},
	}
	config.RegisterServiceFlags(cmd.Flags())
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runService(ctx context.Context, svc config.Service, l *logger.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l.Infof("Starting vehicle interface %s for %s...", version, svc.Model)

	reporter := telemetry.NewReporter(l.WithTag("telemetry"))
	defer reporter.Recover(ctx)

	redis := messaging.NewRedisClient(svc.RedisAddr, l.WithTag("redis"), messaging.Callbacks{})
	reporter.AddSink(redis)

	ciOpts := core.Options{
		Model:           vehicle.Model(svc.Model),
		Flags:           svc.Flags,
		DetectionWindow: svc.DetectionWindow,
		Reporter:        reporter,
	}

	if svc.DBPath != "" {
		st, err := store.NewStore(svc.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		reporter.AddSink(st)
		ciOpts.Recorder = st
	}

	if svc.SentryDSN != "" {
		sink, err := telemetry.NewSentrySink(svc.SentryDSN, "vehicle-interface@"+version)
		if err != nil {
			return err
		}
		defer sink.Flush()
		if host, err := os.Hostname(); err == nil {
			sink.SetUser(host)
		}
		reporter.AddSink(sink)
	}

	if svc.FingerprintFile != "" {
		f, err := fingerprint.LoadFile(svc.FingerprintFile)
		if err != nil {
			return err
		}
		set, err := f.Set()
		if err != nil {
			return err
		}
		ciOpts.Fingerprint = &set
		ciOpts.Firmware = f.Firmware
		l.Infof("Using recorded fingerprint %s", svc.FingerprintFile)
	} else {
		ciOpts.OpenFrames = frameOpener(svc, l.WithTag("canbus"))
	}

	ci, err := core.NewCarInterface(redis, ciOpts, l.WithTag("core"))
	if err != nil {
		return err
	}
	if err := ci.Start(ctx); err != nil {
		ci.Shutdown()
		return errors.Wrap(err, "failed to start car interface")
	}
	l.Infof("Car interface started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		l.Infof("Received signal %v, shutting down...", sig)
	case <-ci.Done():
		l.Infof("Car interface stopped")
	case <-ctx.Done():
	}
	ci.Shutdown()
	l.Infof("Shutdown complete")
	return nil
}

// frameOpener opens the configured buses for each detection window. SLCAN
// adapters take precedence over socketcan interfaces.
func frameOpener(svc config.Service, l *logger.Logger) core.FrameSourceFunc {
	return func(obs canbus.Observer) (core.FrameSource, error) {
		buses, err := openBuses(svc)
		if err != nil {
			return nil, err
		}
		return canbus.NewListener(buses, obs, l), nil
	}
}

func openBuses(svc config.Service) ([]*can.Bus, error) {
	if len(svc.SLCANPorts) > 0 {
		return canbus.OpenSLCANBuses(svc.SLCANPorts, svc.SLCANBitrate)
	}
	return canbus.OpenSocketCAN(svc.CANInterfaces)
}
