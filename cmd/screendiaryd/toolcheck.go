package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// requiredTools are the external binaries the daemon shells out to; all
// must be on PATH before the capture loop is allowed to start (spec.md
// section 7, "User-actionable precondition").
var requiredTools = []string{"spectacle", "xrandr", "tesseract", "ffmpeg"}

// checkTools returns the subset of requiredTools missing from PATH.
func checkTools() []string {
	var missing []string
	for _, name := range requiredTools {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

func newToolCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toolcheck",
		Short: "Verify that required external tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			missing := checkTools()
			if len(missing) == 0 {
				fmt.Println("all required tools found: spectacle, xrandr, tesseract, ffmpeg")
				return nil
			}
			fmt.Fprintf(os.Stderr, "missing required tools: %v\n", missing)
			return fmt.Errorf("toolcheck: %d required tool(s) not found on PATH", len(missing))
		},
	}
}
