// Package cli implements the viewportsim command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// Stderr receives logs. Defaults to os.Stderr.
	Stderr io.Writer

	LogLevel string
}

// LogLevels are the accepted --log-level values.
var LogLevels = []string{"disabled", "err", "warning", "info", "debug", "trace"}

// NewRootCommand creates the root command for the viewportsim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "viewportsim",
		Short: "Replay viewport scheduling scenarios",
		Long: `Replay scripted scrolling, resizing and user interaction against a
viewport scheduler, printing the resulting resource transitions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(LogLevels, opts.LogLevel) {
				return fmt.Errorf("invalid log level %q: must be one of %v", opts.LogLevel, LogLevels)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warning", fmt.Sprintf("log level %v", LogLevels))

	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// Logger builds the JSON logger, writing to Stderr.
func (x *RootOptions) Logger() *logiface.Logger[logiface.Event] {
	w := x.Stderr
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(parseLevel(x.LogLevel)),
	).Logger()
}

func parseLevel(s string) logiface.Level {
	switch s {
	case "err":
		return logiface.LevelError
	case "warning":
		return logiface.LevelWarning
	case "info":
		return logiface.LevelInformational
	case "debug":
		return logiface.LevelDebug
	case "trace":
		return logiface.LevelTrace
	default:
		return logiface.LevelDisabled
	}
}
