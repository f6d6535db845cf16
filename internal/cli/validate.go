package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/eventchain/internal/config"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ConfigFlags
}

// ValidateResult is the JSON payload for a valid config.
type ValidateResult struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return newValidateCommand(&ValidateOptions{RootOptions: rootOpts})
}

func newValidateCommand(opts *ValidateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Resolve and validate the eventchain config",
		Long: `Resolve the config exactly as start does and check it without
starting the chain engine. Every problem is reported, not just the first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}

	bindConfigFlags(cmd, &opts.ConfigFlags)

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.loadOptions())
	if err != nil {
		return formatter.ConfigError(err)
	}

	formatter.VerboseLog("validated %s", cfg.Source)
	return formatter.Success("✓ config valid", ValidateResult{Name: cfg.Name(), Source: cfg.Source})
}
