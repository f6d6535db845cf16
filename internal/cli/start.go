package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/eventchain/internal/adapter"
	"github.com/roach88/eventchain/internal/chain"
	"github.com/roach88/eventchain/internal/config"
)

// EnvEngineURL names the environment variable consulted when --engine-url
// is not given.
const EnvEngineURL = "EVENTCHAIN_ENGINE_URL"

// StartOptions holds flags for the start and pipe commands.
type StartOptions struct {
	*RootOptions
	ConfigFlags

	Mode      string
	Pipe      bool
	Dest      string
	EngineURL string

	// Engine overrides the websocket engine. Used by tests.
	Engine chain.Engine
	// Clock overrides the system clock. Used by tests.
	Clock adapter.Clock
	// NoSignals disables signal handling. Used by tests.
	NoSignals bool
}

// ConfigFlags are the config source flags shared by start, pipe and validate.
type ConfigFlags struct {
	ConfigPath string
	ConfigJSON string

	// WorkDir is where relative paths resolve and discovery scans.
	// Defaults to the process working directory.
	WorkDir string
}

// bindConfigFlags registers --config and --configjson with its --strconfig alias.
func bindConfigFlags(cmd *cobra.Command, f *ConfigFlags) {
	cmd.Flags().StringVarP(&f.ConfigPath, "config", "c", "", "path to an eventchain config file")
	cmd.Flags().StringVarP(&f.ConfigJSON, "configjson", "j", "", "inline eventchain config")
	cmd.Flags().StringVarP(&f.ConfigJSON, "strconfig", "s", "", "alias for --configjson")
}

func (f *ConfigFlags) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		InlineConfig: f.ConfigJSON,
		ConfigPath:   f.ConfigPath,
		Dir:          f.WorkDir,
	}
}

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	return newStartCommand(&StartOptions{RootOptions: rootOpts})
}

func newStartCommand(opts *StartOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the chain engine and log events",
		Long: `Resolve exactly one eventchain config, start the chain engine with it,
and append every mempool and block event to <dest>/eventchain/chain.txt.
With --mode pipe the lines are written to standard output instead.

Config resolution order:
  1. --configjson / --strconfig
  2. --config
  3. the single *.json or *.js file in the working directory carrying
     "eventchain": 1`,
		Example: `  # Discover the config in the working directory
  eventchain start

  # Explicit config, log under ./out/eventchain/chain.txt
  eventchain start -c ./watch.json -d ./out

  # Stream to stdout
  eventchain start -m pipe --configjson '{"eventchain":1,"name":"w","q":{"find":{}}}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, opts)
		},
	}

	bindConfigFlags(cmd, &opts.ConfigFlags)
	bindStartFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", adapter.ModeFile, "output mode (file|pipe)")
	cmd.Flags().BoolVarP(&opts.Pipe, "pipe", "p", false, "shorthand for --mode pipe")

	return cmd
}

// NewPipeCommand creates the pipe command: start with stream output forced.
func NewPipeCommand(rootOpts *RootOptions) *cobra.Command {
	return newPipeCommand(&StartOptions{RootOptions: rootOpts})
}

func newPipeCommand(opts *StartOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Start the chain engine and stream events to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Mode = adapter.ModePipe
			return runStart(cmd, opts)
		},
	}

	bindConfigFlags(cmd, &opts.ConfigFlags)
	bindStartFlags(cmd, opts)

	return cmd
}

func bindStartFlags(cmd *cobra.Command, opts *StartOptions) {
	cmd.Flags().StringVarP(&opts.Dest, "dest", "d", "", "output root; eventchain/chain.txt is created beneath it")
	cmd.Flags().StringVarP(&opts.Dest, "tape", "t", "", "alias for --dest")
	cmd.Flags().StringVar(&opts.EngineURL, "engine-url", "", "chain engine websocket URL (env "+EnvEngineURL+")")
}

func runStart(cmd *cobra.Command, opts *StartOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	pipe := opts.Pipe
	switch opts.Mode {
	case adapter.ModeFile, "":
	case adapter.ModePipe:
		pipe = true
	default:
		_ = formatter.Error(config.ErrCodeGeneric, fmt.Sprintf("invalid mode %q: must be file or pipe", opts.Mode), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid mode %q", opts.Mode))
	}

	eng := opts.Engine
	if eng == nil {
		url := opts.EngineURL
		if url == "" {
			url = os.Getenv(EnvEngineURL)
		}
		if url == "" {
			msg := "no chain engine configured: set --engine-url or " + EnvEngineURL
			_ = formatter.Error(config.ErrCodeGeneric, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		eng = chain.NewWSEngine(url)
	}

	// In pipe mode stdout carries the log, so diagnostics stay on stderr.
	err := adapter.Start(cmd.Context(), opts.loadOptions(), adapter.Options{
		Pipe:      pipe,
		DestRoot:  opts.Dest,
		WorkDir:   opts.WorkDir,
		Stdout:    cmd.OutOrStdout(),
		Clock:     opts.Clock,
		NoSignals: opts.NoSignals,
	}, eng)
	if err != nil {
		var le *config.LoadError
		if errors.As(err, &le) {
			return formatter.ConfigError(le)
		}
		return WrapExitError(ExitCommandError, "chain engine stopped", err)
	}
	return nil
}
