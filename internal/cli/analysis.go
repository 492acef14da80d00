package cli

import (
	"fmt"
	"io"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/spf13/cobra"
)

func newBeliefsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "beliefs",
		Short: "Belief evolution tracking",
	}

	var user string
	rebuild := &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute belief evolutions from stored entries",
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

			beliefs, err := sess.Services.Beliefs.Rebuild(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if beliefs == nil {
				beliefs = []domain.BeliefEvolution{}
			}
			return opts.formatter(cmd).Write(beliefs, func(w io.Writer) error {
				return RenderBeliefsText(w, beliefs)
			})
		},
	}
	rebuild.Flags().StringVar(&user, "user", "", "owning user id")

	cmd.AddCommand(rebuild)
	return cmd
}

func newDiffsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diffs",
		Short: "Narrative diff detection",
	}

	var user, contract string
	detect := &cobra.Command{
		Use:   "detect",
		Short: "Compare consecutive entries per subject and store the shifts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(user)
			if err != nil {
				return err
			}
			c, ok := domain.ContractByName(contract)
			if !ok {
				return fmt.Errorf("unknown contract %q", contract)
			}
			sess, err := opts.Connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			diffs, err := sess.Services.Diffs.Detect(cmd.Context(), userID, c)
			if err != nil {
				return err
			}
			if diffs == nil {
				diffs = []domain.NarrativeDiff{}
			}
			return opts.formatter(cmd).Write(diffs, func(w io.Writer) error {
				return RenderDiffsText(w, diffs)
			})
		},
	}
	detect.Flags().StringVar(&user, "user", "", "owning user id")
	detect.Flags().StringVar(&contract, "contract", "REFLECTOR", "sensemaking contract used to select entries")

	cmd.AddCommand(detect)
	return cmd
}
