package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joeycumines/go-viewport/internal/sim"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Host   string
	Budget string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario",
		Long: `Replay a scenario file, printing one line per resource transition.

The virtual host runs on a simulated clock, and its output is deterministic.
The loop host runs on a real event loop, with real timers.

Example:
  viewportsim run ./gallery.yaml
  viewportsim run --host loop --budget time --log-level debug ./gallery.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", sim.HostVirtual, "host to run on (virtual|loop)")
	cmd.Flags().StringVar(&opts.Budget, "budget", sim.BudgetAuto, "drain budget (auto|time|ticks)")

	return cmd
}

func runScenario(cmd *cobra.Command, opts *RunOptions, path string) error {
	if opts.Stderr == nil {
		opts.Stderr = cmd.ErrOrStderr()
	}
	logger := opts.Logger()

	scenario, err := sim.LoadScenario(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str(`scenario`, scenario.Name).
		Str(`host`, opts.Host).
		Str(`budget`, opts.Budget).
		Log(`running scenario`)

	result, err := sim.Run(ctx, scenario, &sim.Options{
		Logger: logger,
		Host:   opts.Host,
		Budget: opts.Budget,
	})
	if err != nil {
		return fmt.Errorf("scenario %s: %w", path, err)
	}

	_, err = cmd.OutOrStdout().Write(result.Bytes())
	return err
}
