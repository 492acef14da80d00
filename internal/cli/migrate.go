package cli

import (
	"fmt"
	"io"

	"github.com/Harshitk-cp/lorekeeper/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()
			if sess.Pool == nil {
				return fmt.Errorf("migrate requires a database connection")
			}

			applied, err := store.Migrate(cmd.Context(), sess.Pool)
			if err != nil {
				return err
			}
			out := map[string]any{"applied": applied}
			return opts.formatter(cmd).Write(out, func(w io.Writer) error {
				if len(applied) == 0 {
					_, err := fmt.Fprintln(w, "schema up to date")
					return err
				}
				for _, name := range applied {
					if _, err := fmt.Fprintf(w, "applied %s\n", name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
