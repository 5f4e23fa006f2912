package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/torosent/confreq/internal/output"
	"github.com/torosent/confreq/internal/replay"
)

func newReplayCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Save calls to the replay file and send them again later",
	}
	cmd.AddCommand(newReplaySaveCommand(a), newReplayListCommand(a), newReplayRunCommand(a))
	return cmd
}

func (a *app) replayStore() (*replay.Store, error) {
	return replay.Open(a.settings.ReplayPath)
}

func newReplaySaveCommand(a *app) *cobra.Command {
	var (
		flags callFlags
		label string
	)
	cmd := &cobra.Command{
		Use:   "save <endpoint>",
		Short: "Serialize a call and append it to the replay file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.endpoint(args[0])
			if err != nil {
				return err
			}
			in, err := flags.input()
			if err != nil {
				return err
			}
			opts, err := flags.callOptions()
			if err != nil {
				return err
			}
			// Refuse calls that cannot resolve; replaying them would fail anyway.
			if _, err := t.RequestInfo(in, opts); err != nil {
				return err
			}
			ser, err := t.Serialize(in, opts)
			if err != nil {
				return err
			}
			store, err := a.replayStore()
			if err != nil {
				return err
			}
			rec, err := store.Append(label, ser)
			if err != nil {
				return err
			}
			a.logger.Info("call saved", zap.String("id", rec.ID), zap.String("endpoint", ser.Ref), zap.String("file", store.Path()))
			fmt.Fprintln(a.stdout, rec.ID)
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&label, "label", "", "Free-form label stored with the call")
	return cmd
}

func newReplayListCommand(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the saved calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.replayStore()
			if err != nil {
				return err
			}
			records, err := store.List()
			if err != nil {
				return err
			}
			if jsonOutput {
				if records == nil {
					records = []replay.Record{}
				}
				return output.PrintJSON(a.stdout, records)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tENDPOINT\tLABEL")
			for _, rec := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.Request.Ref, rec.Label)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the records as JSON")
	return cmd
}

func newReplayRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Rebuild a saved call through the catalog and send it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.templates()
			if err != nil {
				return err
			}
			store, err := a.replayStore()
			if err != nil {
				return err
			}
			rec, err := store.Get(args[0])
			if err != nil {
				return err
			}
			data, err := replay.Replay(cmd.Context(), reg, rec)
			if err != nil {
				return err
			}
			return output.PrintJSON(a.stdout, data)
		},
	}
}
