package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"multicam/internal/config"
)

// globalOptions は全サブコマンドに共通するフラグ
type globalOptions struct {
	configPath string
}

// load は --config の設定を読み込む
func (g *globalOptions) load() (*config.Config, error) {
	path := g.configPath
	if path == "" {
		path = os.Getenv("MULTICAM_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}
	return cfg, nil
}

// NewRootCommand はコマンドツリーを作成する
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "multicam",
		Short: "複数台の GoPro で撮影セッションを実行する",
		Long: `multicam は番号付きの外部スクリプトを決められた順序で実行し、
検出・録画開始・待機・録画停止・コピー・同期・電源オフを1回のセッションとして進行します。`,
	}

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "設定ファイル (.yaml / .toml)")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newPhasesCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute はコマンドを実行し、終了コードを返す
func Execute() int {
	return execute(context.Background(), NewRootCommand(), os.Args[1:])
}

func execute(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			printError(root.ErrOrStderr(), "%v", exitErr.Err)
		}
		return exitErr.Code
	}

	// cobra が RunE の前に返したエラー（未知のフラグ・引数の数など）
	printError(root.ErrOrStderr(), "%v", err)
	printHint(root.ErrOrStderr(), "`multicam --help` で使い方を確認してください")
	return ExitUsage
}
