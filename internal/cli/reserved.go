package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// reservedCommands are accepted for compatibility and do nothing.
var reservedCommands = []struct {
	name  string
	short string
}{
	{"rewind", "Reserved; does nothing"},
	{"serve", "Reserved; does nothing"},
	{"whoami", "Reserved; does nothing"},
	{"ls", "Reserved; does nothing"},
}

func newReservedCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:                name,
		Short:              short,
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("reserved command, nothing to do", "command", name)
			return nil
		},
	}
}
