// Command netagents runs agent simulations described in topology files and
// inspects the traces they leave behind.
package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "netagents",
		Short: "Run simulations of message-passing agents.",
		Long: `netagents wires agents together with bounded in-process endpoints ` +
			`and runs them concurrently. Topologies are declared in YAML files, ` +
			`messages can be traced to a file or an SQLite database.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newInspectCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
