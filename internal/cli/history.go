package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"multicam/internal/history"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "保存されたセッション履歴を参照する",
	}
	cmd.PersistentFlags().StringVar(&dsn, "history", "", "セッション履歴の保存先 (sqlite パスまたは postgres:// DSN)")

	open := func() (history.Repository, error) {
		cfg, err := g.load()
		if err != nil {
			return nil, usageError(err)
		}
		if dsn != "" {
			cfg.History.DSN = dsn
		}

		repo, err := history.Open(cfg.History.DSN)
		if errors.Is(err, history.ErrDisabled) {
			return nil, usageError(errors.New("履歴の保存先が設定されていません。--history か MULTICAM_HISTORY を指定してください"))
		}
		if err != nil {
			return nil, failure(err)
		}
		return repo, nil
	}

	cmd.AddCommand(newHistoryListCmd(open), newHistoryShowCmd(open))
	return cmd
}

func newHistoryListCmd(open func() (history.Repository, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "最近のセッションを新しい順に表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := open()
			if err != nil {
				return err
			}
			defer repo.Close()

			sessions, err := repo.ListSessions(cmd.Context(), limit)
			if err != nil {
				return failure(fmt.Errorf("履歴の取得に失敗: %w", err))
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "セッションはまだありません")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "ID\tSTARTED\tSTATUS\tDURATION\tOUTPUT")
			for _, s := range sessions {
				fmt.Fprintf(
					cmd.OutOrStdout(),
					"%s\t%s\t%s\t%gs\t%s\n",
					s.ID,
					s.StartedAt.Local().Format(time.RFC3339),
					s.Status,
					s.DurationSec,
					s.OutputPath,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "表示する件数")
	return cmd
}

func newHistoryShowCmd(open func() (history.Repository, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "セッション1件の詳細を表示する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := open()
			if err != nil {
				return err
			}
			defer repo.Close()

			record, err := repo.GetSession(cmd.Context(), args[0])
			if errors.Is(err, history.ErrSessionNotFound) {
				return failure(fmt.Errorf("セッション %q が見つかりません", args[0]))
			}
			if err != nil {
				return failure(fmt.Errorf("履歴の取得に失敗: %w", err))
			}

			writeRecord(cmd.OutOrStdout(), record)
			return nil
		},
	}
}

func writeRecord(out io.Writer, r *history.SessionRecord) {
	fmt.Fprintf(out, "セッション: %s\n", r.ID)
	fmt.Fprintf(out, "状態:       %s\n", r.Status)
	fmt.Fprintf(out, "開始:       %s\n", r.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "終了:       %s\n", r.EndedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "録画時間:   %gs\n", r.DurationSec)
	fmt.Fprintf(out, "出力先:     %s\n", r.OutputPath)
	if r.TakeDir != "" {
		fmt.Fprintf(out, "テイク:     %s\n", r.TakeDir)
	}
	if r.Interrupted {
		fmt.Fprintln(out, "割り込みにより中断しました")
	}
	if r.Error != "" {
		fmt.Fprintf(out, "エラー:     %s\n", r.Error)
	}

	fmt.Fprintln(out, "")
	for _, s := range r.Steps {
		code := "-"
		if s.ExitCode != nil {
			code = fmt.Sprintf("%d", *s.ExitCode)
		}
		class := s.Class
		if class == "" {
			class = "-"
		}
		fmt.Fprintf(out, "  %-9s %-12s exit=%-3s %-22s %dms\n", s.Phase, s.Status, code, class, s.DurationMs)
		if s.Message != "" {
			fmt.Fprintf(out, "    %s\n", s.Message)
		}
	}
}
