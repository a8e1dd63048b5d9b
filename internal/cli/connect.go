package cli

import (
	"github.com/spf13/cobra"
	"github.com/tpodg/backchannel/internal/connect"
	"github.com/tpodg/backchannel/internal/dialog"
	"github.com/tpodg/backchannel/internal/session"
	"github.com/tpodg/backchannel/internal/shellrun"
)

var connectCmd = &cobra.Command{
	Use:    "connect",
	Short:  "Handle an incoming callback (forced command only)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bcApp := getApp(cmd)

		env := session.New()
		desktopEnv := env.DesktopEnv()

		handler := connect.NewHandler(
			bcApp.Logger,
			env,
			dialog.NewConfirmer(bcApp.Config.DialogTimeout, desktopEnv),
			dialog.NewNotifier(desktopEnv),
			shellrun.New(),
		)
		return handler.Handle(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
