package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// ErrAuditFailed makes `lorectl audit` exit non-zero when error-severity
// violations exist.
var ErrAuditFailed = errors.New("invariant audit found errors")

func newAuditCommand(opts *RootOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check a user's entries against the epistemic invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(user)
			if err != nil {
				return err
			}
			sess, err := opts.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			report, err := sess.Services.Auditor.Audit(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if err := opts.formatter(cmd).Write(report, func(w io.Writer) error {
				return RenderAuditText(w, report)
			}); err != nil {
				return err
			}
			if report.Errors > 0 {
				return ErrAuditFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id to audit")
	return cmd
}
