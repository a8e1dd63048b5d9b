package cli

import (
	"github.com/spf13/cobra"
	"github.com/tpodg/backchannel/internal/authkeys"
	"github.com/tpodg/backchannel/internal/keys"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Install the restricted callback entry on this machine",
	Long: `Ensure the backchannel keypair exists and install a forced-command
entry in authorized_keys so provisioned hosts can only invoke the connect
handler, with no shell and no port forwarding.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bcApp := getApp(cmd)
		bcApp.Logger.Info("Configuring local access")

		writer := authkeys.NewWriter(bcApp.Config, keys.NewManager(bcApp.Config))
		exe, err := writer.Configure()
		if err != nil {
			return err
		}

		bcApp.Logger.Info("Local access configured", "entrypoint", exe)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configureCmd)
}
