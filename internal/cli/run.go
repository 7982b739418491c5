package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"multicam/internal/camera"
	"multicam/internal/config"
	"multicam/internal/history"
	"multicam/internal/scripts"
	"multicam/internal/session"
	"multicam/internal/timecode"
)

type runOptions struct {
	duration   int
	output     string
	scriptsDir string
	python     string
	history    string
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:     "run --duration <秒> --output <パス>",
		Aliases: []string{"r"},
		Short:   "撮影セッションを1回実行する",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("duration") {
				return usageError(errors.New("--duration を指定してください"))
			}
			if !cmd.Flags().Changed("output") {
				return usageError(errors.New("--output を指定してください"))
			}

			sessCfg, err := session.NewSessionConfig(opts.duration, opts.output)
			if err != nil {
				return usageError(err)
			}

			cfg, err := g.load()
			if err != nil {
				return usageError(err)
			}
			opts.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return usageError(fmt.Errorf("設定の検証に失敗: %w", err))
			}

			steps, binding, err := cfg.ResolveSteps(cmd.Context())
			if err != nil {
				return usageError(err)
			}
			reportBinding(cmd.ErrOrStderr(), binding)

			return runSession(cmd.Context(), cmd.OutOrStdout(), cfg, steps, sessCfg)
		},
	}

	cmd.Flags().IntVarP(&opts.duration, "duration", "d", 0, "録画時間（秒）")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "コピー先のルートディレクトリ")
	cmd.Flags().StringVar(&opts.scriptsDir, "scripts-dir", "", "番号付きスクリプトのディレクトリ")
	cmd.Flags().StringVar(&opts.python, "python", "", "スクリプトを実行するインタプリタ")
	cmd.Flags().StringVar(&opts.history, "history", "", "セッション履歴の保存先 (sqlite パスまたは postgres:// DSN)")
	return cmd
}

// apply はフラグで設定を上書きする
func (o *runOptions) apply(cfg *config.Config) {
	if o.scriptsDir != "" {
		cfg.Session.ScriptsDir = o.scriptsDir
	}
	if o.python != "" {
		cfg.Session.Python = o.python
	}
	if o.history != "" {
		cfg.History.DSN = o.history
	}
}

// runSession はセッションを実行し、結果を履歴に保存する
func runSession(parent context.Context, out io.Writer, cfg *config.Config, steps []session.Step, sessCfg session.SessionConfig) error {
	// 最初のシグナルで割り込み、以降は既定の動作に戻す
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	base, err := cfg.BaseDir()
	if err != nil {
		return usageError(err)
	}

	// ステップとオーケストレーターは同じ作業ディレクトリを基準にする
	o := session.NewOrchestrator(steps, session.NewExecInvoker(base, out), out)
	o.Dir = base
	o.Cameras = camera.NewCache(cfg.CameraCachePath(), time.Now().Truncate(time.Second))
	o.Countdown = cfg.Session.Countdown && isTerminal(out)
	if d := cfg.Session.CleanupTimeout.Std(); d > 0 {
		o.CleanupTimeout = d
	}
	if cfg.Timecode.Enabled {
		sender := timecode.NewSender(cfg.TimecodeTargets())
		sender.Repeat = cfg.Timecode.Repeat
		sender.Interval = cfg.Timecode.Interval.Std()
		o.Marker = sender
	}

	outcome := o.Run(ctx, sessCfg)

	saveHistory(context.WithoutCancel(parent), cfg.History.DSN, outcome)

	if code := outcome.ExitCode(); code != ExitOK {
		return &ExitError{Code: code, Err: outcome.Err}
	}
	return nil
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// saveHistory はセッション結果を履歴に保存する。失敗しても終了コードは変えない
func saveHistory(ctx context.Context, dsn string, outcome session.Outcome) {
	repo, err := history.Open(dsn)
	if errors.Is(err, history.ErrDisabled) {
		return
	}
	if err != nil {
		log.Printf("履歴を開けませんでした: %v", err)
		return
	}
	defer repo.Close()

	if err := repo.SaveSession(ctx, history.FromOutcome(outcome)); err != nil {
		log.Printf("履歴の保存に失敗しました: %v", err)
		return
	}
	log.Printf("履歴を保存しました: %s", outcome.SessionID)
}

// reportBinding はフェーズに割り当てられなかったスクリプトを表示する
func reportBinding(out io.Writer, b scripts.Binding) {
	for _, s := range b.Ignored {
		printWarn(out, "対応するフェーズがないため無視します: %s", s.Name)
	}
	for _, s := range b.Alternates {
		printWarn(out, "同じ番号の別スクリプトを使用するため無視します: %s", s.Name)
	}
}
