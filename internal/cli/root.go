package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tpodg/backchannel/internal/app"
	"github.com/tpodg/backchannel/internal/config"
)

type contextKey string

const appKey contextKey = "app"

var rootCmd = &cobra.Command{
	Use:   "backchannel",
	Short: "Backchannel lets a provisioned remote host run commands on this machine",
	Long: `Backchannel installs a restricted SSH forced-command entry on your
workstation and provisions remote hosts with a dedicated key, so a remote
session can dial back and request command execution, gated by a local
confirmation dialog.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		bcApp := app.New(cfg)
		ctx := context.WithValue(cmd.Context(), appKey, bcApp)
		cmd.SetContext(ctx)

		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", fmt.Sprintf("config file (default is $HOME/%s)", config.DefaultConfigFileName))
}

func getApp(cmd *cobra.Command) *app.App {
	if a, ok := cmd.Context().Value(appKey).(*app.App); ok {
		return a
	}
	return nil
}
