package cli

import (
	"github.com/spf13/cobra"

	"sidequest/internal/models"
)

func newChallengesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenges",
		Short: "Operate group challenges",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "settle",
		Short: "Pay out the rank rewards of ended challenges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Backend.Challenges(cmd.Context())
			if err != nil {
				return err
			}
			settled, err := svc.SettleEnded(cmd.Context())
			if err != nil {
				return err
			}
			if app.jsonOutput() {
				if settled == nil {
					settled = []*models.ChallengeSettlement{}
				}
				return app.writeJSON(settled)
			}
			if len(settled) == 0 {
				app.printf("no ended challenges to settle\n")
				return nil
			}
			for _, s := range settled {
				app.printf("challenge %d %q: %d rewarded, %d XP, %d badges\n",
					s.ChallengeID, s.Title, s.Rewarded, s.XPAwarded, s.Badges)
			}
			return nil
		},
	})
	return cmd
}
