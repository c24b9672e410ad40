package cmd

import (
	"fmt"
	"os"

	"github.com/mfulz/shellgeist/internal/console"
	"github.com/mfulz/shellgeist/internal/controlcli"
	"github.com/spf13/cobra"
)

// ShellCmd forwards stdin line by line to one daemon session.
var ShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open a remote shell on the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		prompt := ""
		if console.IsTerminal(os.Stdin) {
			prompt = fmt.Sprintf("[%d]> ", c.Session())
		}
		return controlcli.Shell(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
	},
}
