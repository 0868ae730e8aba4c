package cli

import (
	"github.com/spf13/cobra"
)

func newNotificationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Maintain the notification inbox",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete notifications past their expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Backend.Notifications(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := svc.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			if app.jsonOutput() {
				return app.writeJSON(map[string]int64{"removed": removed})
			}
			app.printf("removed %d expired notifications\n", removed)
			return nil
		},
	})
	return cmd
}
