package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tpodg/backchannel/internal/hostaddr"
	"github.com/tpodg/backchannel/internal/keys"
	"github.com/tpodg/backchannel/internal/server"
	"github.com/tpodg/backchannel/internal/session"
	"github.com/tpodg/backchannel/internal/task"
	"github.com/tpodg/backchannel/internal/task/catalog"
	"github.com/tpodg/backchannel/internal/task/provision"
)

var (
	setupRemoteLoginUser  string
	setupRemoteSSHKey     string
	setupRemoteKnownHosts string
	setupRemoteNoAgent    bool
	setupRemoteNoPin      bool
)

var setupRemoteCmd = &cobra.Command{
	Use:   "setup-remote <[user@]host[:port]>",
	Short: "Provision a remote host for dialing back",
	Long: `Copy the backchannel key to a remote host, record which address and
username it should dial back to, and pin this machine's SSH host key so
the callback can verify it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bcApp := getApp(cmd)
		target := args[0]

		loginUser, address := parseTarget(target)
		if setupRemoteLoginUser != "" {
			loginUser = setupRemoteLoginUser
		}
		if loginUser == "" {
			name, err := session.New().Username()
			if err != nil {
				return err
			}
			loginUser = name
		}

		bcApp.Logger.Info("Provisioning responder", "target", address, "login_user", loginUser)

		manager := keys.NewManager(bcApp.Config)
		pair, err := manager.Ensure()
		if err != nil {
			return err
		}
		keyData, err := os.ReadFile(pair.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("failed to read private key: %w", err)
		}

		dialBackHost := hostaddr.NewResolver().Resolve(cmd.Context())
		dialBackUser, err := session.New().Username()
		if err != nil {
			return err
		}

		overrides := map[string]any{
			provision.TaskKey: map[string]any{
				"host":             dialBackHost,
				"user":             dialBackUser,
				"private_key":      string(keyData),
				"mapping_path":     bcApp.Config.RemoteMappingPath,
				"key_path":         bcApp.Config.RemoteKeyPath,
				"known_hosts_path": bcApp.Config.RemoteKnownHostsPath,
			},
		}
		if setupRemoteNoPin {
			overrides[provision.TaskKey].(map[string]any)["pin_host_key"] = false
		}

		tasks, unknown, err := task.PlanTasks(overrides, catalog.Builtins())
		if err != nil {
			return err
		}
		if len(unknown) > 0 {
			bcApp.Logger.Warn("Ignoring unknown provisioning keys", "keys", unknown)
		}

		useAgent := !setupRemoteNoAgent
		srv := server.NewSSHServer(target, address, server.User{
			Name:   loginUser,
			SSHKey: setupRemoteSSHKey,
		}, server.SSHOptions{
			KnownHostsPath:   setupRemoteKnownHosts,
			UseAgent:         &useAgent,
			HandshakeTimeout: bcApp.Config.HandshakeTimeout,
		})

		runner := task.NewRunner(bcApp.Logger)
		configurator := task.NewTaskConfigurator(runner, tasks...)
		if err := configurator.Configure(cmd.Context(), srv); err != nil {
			return fmt.Errorf("failed to provision %s: %w", address, err)
		}

		bcApp.Logger.Info("Responder provisioned", "target", address, "dial_back", dialBackUser+"@"+dialBackHost)
		return nil
	},
}

// parseTarget splits an optional login user from a target address.
func parseTarget(target string) (user, address string) {
	if u, rest, ok := strings.Cut(target, "@"); ok {
		return u, rest
	}
	return "", target
}

func init() {
	setupRemoteCmd.Flags().StringVar(&setupRemoteLoginUser, "login-user", "", "SSH user for provisioning (defaults to user@ in the target, then the local user)")
	setupRemoteCmd.Flags().StringVar(&setupRemoteSSHKey, "ssh-key", "", "SSH private key used to reach the target")
	setupRemoteCmd.Flags().StringVar(&setupRemoteKnownHosts, "known-hosts", "", "known_hosts file for verifying the target (default ~/.ssh/known_hosts)")
	setupRemoteCmd.Flags().BoolVar(&setupRemoteNoAgent, "no-agent", false, "Do not fall back to the ssh-agent")
	setupRemoteCmd.Flags().BoolVar(&setupRemoteNoPin, "no-pin", false, "Do not pin this machine's host key on the responder")
	rootCmd.AddCommand(setupRemoteCmd)
}
