package cli

import (
	"fmt"
	"io"

	"github.com/Harshitk-cp/lorekeeper/internal/buildconfig"
	"github.com/spf13/cobra"
)

func newVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildconfig.Get()
			return opts.formatter(cmd).Write(info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "lorectl %s (%s, %s)\n", info.Version, info.Commit, info.GoVersion)
				return err
			})
		},
	}
}
