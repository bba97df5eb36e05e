// Command screendiaryd is the personal desktop-activity recorder daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "screendiaryd",
		Short: "Personal desktop-activity recorder daemon",
		Long:  "screendiaryd periodically captures the desktop and active window, extracts text, and derives an activity timeline.",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newToolCheckCmd())
	root.AddCommand(newSummaryCmd())
	root.AddCommand(newSearchCmd())
	return root
}
