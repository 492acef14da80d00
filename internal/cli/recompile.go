package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func newRecompileCommand(opts *RootOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "recompile ENTRY_ID...",
		Short: "Incrementally recompile entries and everything that depends on them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(user)
			if err != nil {
				return err
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			sess, err := opts.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			res, err := sess.Services.Incremental.IncrementalCompile(cmd.Context(), userID, ids)
			if err != nil {
				return err
			}
			return opts.formatter(cmd).Write(res, func(w io.Writer) error {
				return RenderIncrementalText(w, res)
			})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "owning user id")
	return cmd
}
