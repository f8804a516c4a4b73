package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "0.3.0"
	goVersion = runtime.Version()
	platform  = runtime.GOOS + "/" + runtime.GOARCH
)

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Annotations: offline(),
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("esign version:", version)
			cmd.Println("Go version:", goVersion)
			cmd.Println("Platform:", platform)
		},
	}
	return cmd
}
