package cmd

import (
	"fmt"

	"github.com/sleepyyui/notallyxo-sync-service/internal/app"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info and exit. // 打印版本信息并退出。",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s v%s\n", app.Name, app.Version)
		fmt.Printf("  git:   %s\n", app.GitTag)
		fmt.Printf("  built: %s\n", app.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
