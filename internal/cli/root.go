package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// EnvFile is loaded into the environment before any command runs.
	EnvFile string

	// LogWriter receives structured logs. Defaults to os.Stderr.
	LogWriter io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the eventchain CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "eventchain",
		Short: "eventchain - append-only log of chain events",
		Long: `Watch a blockchain through a chain engine and keep an append-only log
of every mempool transaction and block that matches an eventchain config.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLogging(opts)
			loadEnvFile(opts.EnvFile)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "environment file to load if present")

	cmd.AddCommand(NewStartCommand(opts))
	cmd.AddCommand(NewPipeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	for _, reserved := range reservedCommands {
		cmd.AddCommand(newReservedCommand(reserved.name, reserved.short))
	}

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// setupLogging installs the default slog handler: text on stderr, debug
// level with --verbose.
func setupLogging(opts *RootOptions) {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// loadEnvFile loads KEY=VALUE pairs without overriding the environment.
// A missing file is not an error.
func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return
		}
		slog.Warn("could not load env file", "path", path, "error", err)
		return
	}
	slog.Debug("loaded env file", "path", path)
}
