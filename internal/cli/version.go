package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// version はビルド時に -ldflags "-X multicam/internal/cli.version=..." で上書きする
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "バージョンを表示する",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "multicam %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
