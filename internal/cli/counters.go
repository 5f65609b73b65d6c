package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"autoinc/internal/core/counter"
	appctx "autoinc/internal/core/context"
)

func addSpecFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("start-at", 0, "First value of a fresh counter")
	cmd.Flags().Int64("step", 1, "Increment (may be negative)")
}

func specFromFlags(cmd *cobra.Command, name string) counter.Spec {
	startAt, _ := cmd.Flags().GetInt64("start-at")
	step, _ := cmd.Flags().GetInt64("step")
	return counter.Spec{Name: name, StartAt: startAt, Step: step}
}

// NewNextCmd creates the "next" subcommand.
func NewNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next NAME",
		Short: "Advance a counter and print the issued value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := appctx.EnsureTrace(cmd.Context(), appctx.OriginCLI)
			rt, err := newApp(ctx, cmd, "stderr")
			if err != nil {
				return err
			}
			defer rt.Close()

			v, err := rt.plugin.Registry().GetNext(ctx, specFromFlags(cmd, args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	addSpecFlags(cmd)
	return cmd
}

// NewPeekCmd creates the "peek" subcommand.
func NewPeekCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peek NAME",
		Short: "Print the value the next advance would issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := appctx.EnsureTrace(cmd.Context(), appctx.OriginCLI)
			rt, err := newApp(ctx, cmd, "stderr")
			if err != nil {
				return err
			}
			defer rt.Close()

			v, err := rt.plugin.Registry().PeekNext(ctx, specFromFlags(cmd, args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	addSpecFlags(cmd)
	return cmd
}

// NewSetCmd creates the "set" subcommand.
func NewSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Overwrite a counter's last issued value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return exitError(2, "invalid value %q: %v", args[1], err)
			}
			step, _ := cmd.Flags().GetInt64("step")
			spec := counter.Spec{Name: args[0], Step: step}.Normalize()
			if err := spec.Validate(); err != nil {
				return exitError(2, "%v", err)
			}

			ctx := appctx.EnsureTrace(cmd.Context(), appctx.OriginCLI)
			rt, err := newApp(ctx, cmd, "stderr")
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.plugin.Store().Set(ctx, spec.Name, value, spec.Step); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %d (step %d)\n", spec.Name, value, spec.Step)
			return nil
		},
	}
	cmd.Flags().Int64("step", 1, "Increment stored with the counter")
	return cmd
}

// NewListCmd creates the "list" subcommand.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := appctx.EnsureTrace(cmd.Context(), appctx.OriginCLI)
			rt, err := newApp(ctx, cmd, "stderr")
			if err != nil {
				return err
			}
			defer rt.Close()

			counters, err := rt.plugin.Store().List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCURRENT\tSTEP")
			for _, c := range counters {
				fmt.Fprintf(w, "%s\t%d\t%d\n", c.Name, c.CurrentValue, c.Step)
			}
			return w.Flush()
		},
	}
}
