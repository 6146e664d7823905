package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vehicle-interface/internal/canbus"
	"vehicle-interface/internal/config"
	"vehicle-interface/internal/fingerprint"
)

const keyOutput = "output"

func newRecordCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "record",
		Short:        "Listen to the buses for one detection window and save the fingerprint",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := opts.v
			out := v.GetString(keyOutput)
			if out == "" {
				return errors.New("an output file is required")
			}
			svc := config.Service{
				Model:         v.GetString(config.KeyModel),
				CANInterfaces: v.GetStringSlice(config.KeyCANInterfaces),
				SLCANPorts:    v.GetStringSlice(config.KeySLCANPorts),
				SLCANBitrate:  v.GetInt(config.KeySLCANBitrate),
			}
			window := v.GetDuration(config.KeyDetectionWindow)
			if window <= 0 {
				window = config.DefaultDetectionWindow
			}

			l, err := newLogger(cmd.ErrOrStderr(), v.GetString(config.KeyLogLevel))
			if err != nil {
				return err
			}

			buses, err := openBuses(svc)
			if err != nil {
				return err
			}
			collector := fingerprint.NewCollector()
			listener := canbus.NewListener(buses, collector, l.WithTag("canbus"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			l.Infof("Listening on %d buses for %v", len(buses), window)
			listener.Start(ctx)
			select {
			case <-time.After(window):
			case <-ctx.Done():
			}
			listener.Stop()
			if errors.Is(ctx.Err(), context.Canceled) {
				return errors.New("recording interrupted")
			}

			fp := collector.Snapshot()
			if err := fingerprint.SaveFile(out, fingerprint.NewFile(svc.Model, nil, fp)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d frames, %d messages to %s\n", collector.Frames(), fp.Len(), out)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringP(keyOutput, "o", "", "fingerprint file to write")
	fs.String(config.KeyModel, "", "vehicle model to note in the file")
	fs.Duration(config.KeyDetectionWindow, config.DefaultDetectionWindow, "how long to listen")
	fs.StringSlice(config.KeyCANInterfaces, []string{"can0", "can1", "can2"}, "socketcan interfaces for bus0, bus1 and bus2")
	fs.StringSlice(config.KeySLCANPorts, nil, "serial SLCAN adapters for bus0, bus1 and bus2 (overrides --can)")
	fs.Int(config.KeySLCANBitrate, 500000, "CAN bitrate for SLCAN adapters")
	return cmd
}
