// Command geistctl is the command line client of a shellgeist daemon.
// It connects to the configured channel (unix socket or TCP) and runs
// single command lines or a remote interactive shell.
package main

import (
	"fmt"
	"os"

	"github.com/mfulz/shellgeist/cmd/geistctl/cmd"
	"github.com/mfulz/shellgeist/internal/configloader"
	"github.com/mfulz/shellgeist/internal/controlcli"
	"github.com/mfulz/shellgeist/internal/logging"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "geistctl",
	Short: "Control interface for shellgeist daemons",
	Long:  `geistctl runs command lines in a shellgeist daemon, one at a time or as a remote shell.`,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		cfg, err := controlcli.LoadCTLConfig()
		if err != nil {
			return err
		}
		if cfg.Logger.Level != "" {
			configloader.StoreConfig(&cfg.Logger)
			if err := logging.Init(); err != nil {
				return fmt.Errorf("[geistctl] failed to init logger: %w", err)
			}
		}
		configloader.StoreConfig(cfg)
		logging.Log.Debugf("[geistctl] %d daemon(s) configured", len(cfg.Daemons))
		return nil
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cmd.AddFlags(rootCmd)
	rootCmd.AddCommand(cmd.ExecCmd)
	rootCmd.AddCommand(cmd.ShellCmd)
}
