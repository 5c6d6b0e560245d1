package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/buildinfo"
	"github.com/cleared-dev/ledger/internal/logging"
)

// rootOptions are the persistent flags every subcommand sees.
type rootOptions struct {
	dir   string
	user  string
	debug bool
	log   *slog.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "ledger",
		Short:   "Double-entry books for a small business",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.debug {
				level = slog.LevelDebug
			}
			opts.log = logging.New(level, cmd.ErrOrStderr())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", ".", "ledger directory (holds ledger.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.user, "user", defaultUser(), "user recorded on entries and in the activity log")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newAccountCommand(opts),
		newEntryCommand(opts),
		newPartnerCommand(opts),
		newPaymentCommand(opts),
		newSaleCommand(opts),
		newPurchaseCommand(opts),
		newInventoryCommand(opts),
		newOpenItemsCommand(opts),
		newReportCommand(opts),
		newImportCommand(opts),
		newActivityCommand(opts),
		newSnapshotCommand(opts),
	)

	return rootCmd
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "owner"
}
