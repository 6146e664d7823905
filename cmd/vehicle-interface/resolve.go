package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vehicle-interface/internal/config"
	"vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/types"
	"vehicle-interface/internal/vehicle"
)

func newResolveCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "resolve",
		Short:        "Print the configuration a recorded fingerprint resolves to",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := opts.v
			path := v.GetString(config.KeyFingerprintFile)
			if path == "" {
				return errors.New("a fingerprint file is required")
			}
			f, err := fingerprint.LoadFile(path)
			if err != nil {
				return err
			}
			set, err := f.Set()
			if err != nil {
				return err
			}

			model := v.GetString(config.KeyModel)
			if model == "" {
				model = f.Model
			}
			if model == "" {
				return errors.New("no vehicle model given and none recorded in the fingerprint")
			}

			cfg, err := config.Build(vehicle.Model(model), set, config.FlagsFromViper(v), f.Firmware)
			if err != nil {
				return err
			}
			if opts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			return printConfiguration(cmd.OutOrStdout(), cfg, set)
		},
	}

	cmd.Flags().String(config.KeyModel, "", "vehicle model (default is the model recorded in the file)")
	cmd.Flags().String(config.KeyFingerprintFile, "", "recorded fingerprint file")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func printConfiguration(w io.Writer, cfg *config.VehicleConfiguration, fp fingerprint.Set) error {
	t := cfg.Topology
	c := cfg.Constants
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		name  string
		value interface{}
	}{
		{"model", cfg.Model},
		{"safety model", t.SafetyModel},
		{"steering bus", t.SteeringBus},
		{"angle sensor bus", t.AngleSensorBus},
		{"adaptive cruise bus", t.AdaptiveCruiseBus},
		{"radar is external", t.RadarIsExternal},
		{"pcm cruise", t.PCMCruise},
		{"blind spot module", t.HasBlindSpotModule},
		{"auto hold", t.HasAutoHold},
		{"engine management", t.HasEngineManagementSignals},
		{"scc13", t.HasSCC13},
		{"scc14", t.HasSCC14},
		{"mass", c.Mass},
		{"wheelbase", c.Wheelbase},
		{"steer ratio", c.SteerRatio},
		{"min steer speed", c.MinSteerSpeed},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%v\n", r.name, r.value)
	}
	for i := 0; i < types.BusCount; i++ {
		bus := types.Bus(i)
		ids := fp.Bus(bus).IDs()
		names := make([]string, len(ids))
		for j, id := range ids {
			names[j] = strconv.FormatUint(uint64(id), 10)
		}
		fmt.Fprintf(tw, "%s messages\t%s\n", bus, strings.Join(names, " "))
	}
	return tw.Flush()
}
