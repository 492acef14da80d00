package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type compileOptions struct {
	user   string
	thread string
	canon  string
}

func newCompileCommand(opts *RootOptions) *cobra.Command {
	co := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile TEXT...",
		Short: "Compile an utterance into an entry",
		Example: `  lorectl compile --user 3f0c... "Yesterday I met Sarah at the market."
  lorectl compile --user 3f0c... --canon ROLEPLAY "As the captain, I order a retreat."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(co.user)
			if err != nil {
				return err
			}
			threadID := uuid.New()
			if co.thread != "" {
				if threadID, err = uuid.Parse(co.thread); err != nil {
					return fmt.Errorf("invalid --thread %q: %w", co.thread, err)
				}
			}

			req := service.CompileRequest{
				UserID:      userID,
				UtteranceID: uuid.New(),
				ThreadID:    threadID,
				Text:        strings.Join(args, " "),
				Timestamp:   time.Now().UTC(),
			}
			if co.canon != "" {
				c := domain.CanonStatus(strings.ToUpper(co.canon))
				req.CanonOverride = &c
			}

			sess, err := opts.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			entry, err := sess.Services.Compiler.Compile(cmd.Context(), req)
			if err != nil {
				return err
			}
			return opts.formatter(cmd).Write(entry, func(w io.Writer) error {
				return RenderEntryText(w, entry)
			})
		},
	}

	cmd.Flags().StringVar(&co.user, "user", "", "owning user id")
	cmd.Flags().StringVar(&co.thread, "thread", "", "thread id (new thread if empty)")
	cmd.Flags().StringVar(&co.canon, "canon", "", "override canon status (e.g. ROLEPLAY)")

	return cmd
}
