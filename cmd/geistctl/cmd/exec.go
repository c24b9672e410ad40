// Package cmd provides the geistctl subcommands talking to a shellgeist
// daemon through the controlcli client.
package cmd

import (
	"context"
	"strings"

	"github.com/mfulz/shellgeist/internal/configloader"
	"github.com/mfulz/shellgeist/internal/controlcli"
	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/spf13/cobra"
)

var (
	daemonName   string
	overrideAddr string
)

// AddFlags registers the connection flags shared by all subcommands.
func AddFlags(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&daemonName, "daemon", "d", "", "daemon name from geistctl.yaml")
	root.PersistentFlags().StringVar(&overrideAddr, "addr", "", "channel to connect to, overrides --daemon (socket path, name or tcp://host:port)")
}

func connect(ctx context.Context) (*controlcli.Client, error) {
	channel := overrideAddr
	if channel == "" {
		cfg := configloader.MustGetConfig[*controlcli.CTLConfig]()
		var err error
		if channel, err = cfg.Channel(daemonName); err != nil {
			return nil, err
		}
	}
	logging.Log.Debugf("[geistctl] connecting to %s", channel)
	return controlcli.Dial(ctx, channel)
}

// ExecCmd runs one command line in a fresh daemon session.
var ExecCmd = &cobra.Command{
	Use:   "exec <command> [args...]",
	Short: "Run a single command line in the daemon",
	Example: `  geistctl exec hello name=Ada
  geistctl exec 'poke name="Jane Doe" -formal'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Exec(strings.Join(args, " "))
		if err != nil {
			return err
		}
		controlcli.Print(cmd.OutOrStdout(), resp)
		if err := resp.Err(); err != nil {
			cmd.SilenceErrors = true
			return err
		}
		return nil
	},
}
