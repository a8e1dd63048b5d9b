package cli

import (
	"github.com/spf13/cobra"
	"github.com/tpodg/backchannel/internal/callback"
	"github.com/tpodg/backchannel/internal/session"
	"github.com/tpodg/backchannel/internal/strutil"
)

var runCmd = &cobra.Command{
	Use:   "run <command...>",
	Short: "Ask the connected workstation to run a command",
	Long: `Dial back to the machine that opened the current SSH session and
request that it execute the given command. Requires this host to have been
provisioned with setup-remote.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bcApp := getApp(cmd)

		command := strutil.ShellJoin(args)
		requester := callback.NewRequester(bcApp.Config, bcApp.Logger, session.New())
		return requester.Run(cmd.Context(), command)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
