package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/torosent/confreq/internal/config"
	"github.com/torosent/confreq/internal/extractor"
	"github.com/torosent/confreq/internal/output"
	"github.com/torosent/confreq/pkg/request"
)

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "confreq",
		Short:         "Resolve, send and mock REST calls declared in an endpoint catalog",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	config.RegisterFlags(root)

	root.AddCommand(
		newEndpointsCommand(a),
		newDescribeCommand(a),
		newInfoCommand(a),
		newCallCommand(a, "request", "Resolve and send a call over the network path (or mock, when mocking is on)", false),
		newCallCommand(a, "mock", "Resolve a call and answer it with the endpoint's mock", true),
		newBenchCommand(a),
		newReplayCommand(a),
	)
	return root
}

func newEndpointsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoints of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.templates()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMETHOD\tURL\tDESCRIPTION")
			for _, ep := range a.catalog.Endpoints {
				t, ok := reg.Lookup(ep.Name)
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name(), t.Method(), t.URLPattern(), ep.Description)
			}
			return tw.Flush()
		},
	}
}

func newDescribeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <endpoint>",
		Short: "Print the configuration of an endpoint: parameters, calculations and body type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.endpoint(args[0])
			if err != nil {
				return err
			}
			return output.PrintJSON(a.stdout, t)
		},
	}
}

func newInfoCommand(a *app) *cobra.Command {
	var flags callFlags
	cmd := &cobra.Command{
		Use:   "info <endpoint>",
		Short: "Resolve a call without sending it and print the resolved request",
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
			resolved, err := t.RequestInfo(in, opts)
			if err != nil {
				return err
			}
			return output.PrintJSON(a.stdout, resolved)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newCallCommand(a *app, name, short string, forceMock bool) *cobra.Command {
	var (
		flags   callFlags
		extract []string
		full    bool
	)
	cmd := &cobra.Command{
		Use:   name + " <endpoint>",
		Short: short,
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
			rules, err := parseRules(extract)
			if err != nil {
				return err
			}
			if forceMock {
				if opts == nil {
					opts = request.Options{}
				}
				opts[request.OptMock] = true
			}

			resp, err := t.Do(cmd.Context(), in, opts)
			if err != nil {
				return err
			}
			if len(rules) > 0 {
				output.PrintExtracted(a.stdout, extractor.Apply(resp.Data, rules, a.logger))
				return nil
			}
			if full {
				return output.PrintJSON(a.stdout, envelope(resp))
			}
			return output.PrintJSON(a.stdout, resp.Data)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringArrayVar(&extract, "extract", nil, "Print name=value pairs extracted from the response: name=<json path> or name=~<regex> (repeatable)")
	cmd.Flags().BoolVar(&full, "full", false, "Print the whole response envelope instead of the data")
	return cmd
}

type responseEnvelope struct {
	Data       any               `json:"data"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers,omitempty"`
	Config     request.Options   `json:"config,omitempty"`
}

func envelope(resp *request.Response) responseEnvelope {
	return responseEnvelope{
		Data:       resp.Data,
		Status:     resp.Status,
		StatusText: resp.StatusText,
		Headers:    resp.Headers,
		Config:     resp.Config,
	}
}
