// File: cmd/windows.go
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/deskpilot/internal/observability"
	"github.com/xkilldash9x/deskpilot/internal/winauth"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List visible top-level windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := winauth.NewAuthority(observability.GetLogger())
		wins := auth.ListWindows()
		if len(wins) == 0 {
			fmt.Println("no visible windows (or window enumeration is unsupported on this platform)")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PID\tPROCESS\tCLASS\tTITLE")
		for _, win := range wins {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", win.PID, win.Process, win.Class, win.Title)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(windowsCmd)
}
