package cli

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tpodg/backchannel/internal/server"
	"github.com/tpodg/backchannel/internal/session"
)

var (
	pingLoginUser  string
	pingSSHKey     string
	pingKnownHosts string
	pingNoAgent    bool
)

var pingCmd = &cobra.Command{
	Use:   "ping <[user@]host[:port]>",
	Short: "Verify connectivity to a remote host",
	Long:  `Connect to a remote host and execute a simple command to verify accessibility before or after provisioning.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bcApp := getApp(cmd)
		target := args[0]

		loginUser, address := parseTarget(target)
		if pingLoginUser != "" {
			loginUser = pingLoginUser
		}
		if loginUser == "" {
			name, err := session.New().Username()
			if err != nil {
				return err
			}
			loginUser = name
		}

		useAgent := !pingNoAgent
		srv := server.NewSSHServer(target, address, server.User{
			Name:   loginUser,
			SSHKey: pingSSHKey,
		}, server.SSHOptions{
			KnownHostsPath:   pingKnownHosts,
			UseAgent:         &useAgent,
			HandshakeTimeout: bcApp.Config.HandshakeTimeout,
		})

		return verifyServer(cmd.Context(), bcApp.Logger, srv)
	},
}

func verifyServer(ctx context.Context, logger *slog.Logger, srv server.Server) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	logger.Info("Checking server", "name", srv.ID(), "address", srv.Address())
	output, err := srv.Execute(ctx, "echo 'pong'")
	if err != nil {
		logger.Error("Verification failed", "server", srv.ID(), "error", err)
		return err
	}

	if strings.TrimSpace(output) == "pong" {
		logger.Info("Verification successful", "server", srv.ID())
	} else {
		logger.Warn("Verification partially successful (unexpected output)", "server", srv.ID(), "output", strings.TrimSpace(output))
	}
	return nil
}

func init() {
	pingCmd.Flags().StringVar(&pingLoginUser, "login-user", "", "SSH user for the check (defaults to user@ in the target, then the local user)")
	pingCmd.Flags().StringVar(&pingSSHKey, "ssh-key", "", "SSH private key used to reach the target")
	pingCmd.Flags().StringVar(&pingKnownHosts, "known-hosts", "", "known_hosts file for verifying the target (default ~/.ssh/known_hosts)")
	pingCmd.Flags().BoolVar(&pingNoAgent, "no-agent", false, "Do not fall back to the ssh-agent")
	rootCmd.AddCommand(pingCmd)
}
