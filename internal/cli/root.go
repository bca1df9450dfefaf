// Package cli implements the slotmatch command line: offline matching and
// plan validation against the same service code the HTTP server runs.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/okian/slotmatch/internal/config"
	"github.com/okian/slotmatch/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

// NewRootCmd creates the root cobra command for the slotmatch CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "slotmatch",
		Short: "Assign tournament sessions to teams",
		Long: `slotmatch assigns judging sessions, ranking matches and practice matches
to teams so every team gets its quota of sessions at distinct event indices.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (YAML or JSON; or SLOTMATCH_CONFIG env)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (text, json); overrides config")

	root.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
	)

	return root
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(ctx, o.configPath)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}

	if err := logger.InitWithWriter(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	o.cfg = cfg
	return nil
}
