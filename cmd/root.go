// Package cmd implements the quality-gate command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"yqhp/quality-gate/internal/config"
	"yqhp/quality-gate/pkg/logger"
)

const (
	// Version is the current release.
	Version = "0.1.0"
	// Banner is printed by long-running commands.
	Banner = `
   ___   ____    quality-gate %s
  / _ \ / ___|
 | | | | |  _
 | |_| | |_| |
  \__\_\\____|
`
)

// Exit codes returned by Execute.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitFailed = 2
)

// ErrGateFailed is returned when an evaluation completes with a failing verdict.
var ErrGateFailed = errors.New("quality gate failed")

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	cfgFile   string
	overrides map[string]string
	debug     bool
	quiet     bool

	// cfg is loaded by the root PersistentPreRunE.
	cfg *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "quality-gate",
		Short: "Quality gate for performance test results",
		Long: `quality-gate decides whether a performance test run passes by checking
its aggregated metrics against SLA thresholds and a baseline run.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringToStringVar(&opts.overrides, "set", nil, "config override by dotted path, e.g. --set limits.error_rate=5")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging and evaluation traces")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "print nothing but errors")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(fmt.Sprintf(Banner, Version) + "\n")

	rootCmd.AddCommand(
		newAggregateCmd(opts),
		newConfigCmd(opts),
		newEvaluateCmd(opts),
		newScopedCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the configuration, validates it and initializes logging.
func (o *globalOptions) load() error {
	cfg, err := config.LoadAndValidate(o.cfgFile, o.overrides)
	if err != nil {
		return err
	}

	logger.Init(cfg.LoggerConfig())
	if o.debug {
		logger.EnableDebug()
		cfg.Evaluation.Debug = true
	}
	o.cfg = cfg
	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(rootCmd *cobra.Command, args []string, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	logger.Sync()

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrGateFailed):
		return ExitFailed
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return ExitError
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quality-gate version %s\n", Version)
		},
	}
}
