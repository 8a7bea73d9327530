package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/manasmitra/internal/apiclient"
)

func newProfileCmd(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Create or show your anonymous profile",
		Long:  "Create an anonymous profile on the server and save its token locally. No account or personal details are needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			existing, err := loadProfile(opts.profileFile)
			switch {
			case err == nil && !force:
				fmt.Fprintf(out, "Profile %s (expires %s)\n", existing.ID, existing.ExpiresAt)
				return nil
			case err != nil && !errors.Is(err, apiclient.ErrNoProfile):
				return err
			}

			client := apiclient.New(opts.server, "")
			p, err := client.CreateProfile(cmd.Context())
			if err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
			if err := saveProfile(opts.profileFile, savedProfile{
				ID:        p.ID,
				Token:     p.Token,
				ExpiresAt: p.ExpiresAt,
				Server:    opts.server,
			}); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created profile %s\n", p.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "new", false, "Replace the saved profile with a new one")
	return cmd
}
