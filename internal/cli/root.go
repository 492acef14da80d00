// Package cli implements lorectl, the admin command line for a lorekeeper
// deployment. Commands talk to the database directly through the same
// service graph the HTTP server uses.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string
	Connect Connector
}

var ValidFormats = []string{"text", "json", "yaml"}

func NewRootCommand(connect Connector) *cobra.Command {
	opts := &RootOptions{Connect: connect}

	cmd := &cobra.Command{
		Use:   "lorectl",
		Short: "Administer a lorekeeper narrative store",
		Long: `lorectl compiles utterances, audits epistemic invariants and
rebuilds derived analyses against a lorekeeper database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newCompileCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))
	cmd.AddCommand(newRecompileCommand(opts))
	cmd.AddCommand(newBeliefsCommand(opts))
	cmd.AddCommand(newDiffsCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
