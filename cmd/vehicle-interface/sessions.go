package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vehicle-interface/internal/config"
	"vehicle-interface/internal/store"
)

const keyLimit = "limit"

func newSessionsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sessions [session-id]",
		Short:        "List recorded sessions, or the crash reports of one session",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.v.GetString(config.KeyDBPath)
			if path == "" {
				return errors.New("a database path is required")
			}
			st, err := store.NewStore(path)
			if err != nil {
				return err
			}
			defer st.Close()

			w := cmd.OutOrStdout()
			if len(args) == 1 {
				reports, err := st.CrashReports(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.format == "json" {
					return json.NewEncoder(w).Encode(reports)
				}
				return printCrashReports(w, reports)
			}

			sessions, err := st.Sessions(cmd.Context(), opts.v.GetInt(keyLimit))
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return json.NewEncoder(w).Encode(sessions)
			}
			return printSessions(w, sessions)
		},
	}

	cmd.Flags().String(config.KeyDBPath, "/data/vehicle-interface.db", "sqlite database")
	cmd.Flags().Int(keyLimit, 20, "most recent sessions to list")
	return cmd
}

func printSessions(w io.Writer, sessions []store.Session) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODEL\tSAFETY\tSTEERING\tSCC\tSTARTED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Model, s.Topology.SafetyModel, s.Topology.SteeringBus,
			s.Topology.AdaptiveCruiseBus, s.StartedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func printCrashReports(w io.Writer, reports []store.CrashReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tTIME\tMESSAGE")
	for _, r := range reports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.Kind, r.CreatedAt.Format(time.RFC3339), r.Message)
	}
	return tw.Flush()
}
