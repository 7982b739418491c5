package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"multicam/internal/session"
)

func newPhasesCmd(g *globalOptions) *cobra.Command {
	var scriptsDir, python string

	cmd := &cobra.Command{
		Use:     "phases",
		Aliases: []string{"p"},
		Short:   "解決済みのフェーズ表を表示する（何も実行しない）",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return usageError(err)
			}
			if scriptsDir != "" {
				cfg.Session.ScriptsDir = scriptsDir
			}
			if python != "" {
				cfg.Session.Python = python
			}

			steps, binding, err := cfg.ResolveSteps(cmd.Context())
			if err != nil {
				return failure(err)
			}

			writePhaseTable(cmd.OutOrStdout(), steps)
			reportBinding(cmd.OutOrStdout(), binding)
			return nil
		},
	}

	cmd.Flags().StringVar(&scriptsDir, "scripts-dir", "", "番号付きスクリプトのディレクトリ")
	cmd.Flags().StringVar(&python, "python", "", "スクリプトを実行するインタプリタ")
	return cmd
}

// derivedArgs はセッションごとに付け足される引数の表記
var derivedArgs = map[session.PhaseName][]string{
	session.PhaseCopy: {"<output>"},
	session.PhaseSync: {"<take>/videos"},
}

// writePhaseTable はフェーズ表を実行順に表示する。wait は組み込み
func writePhaseTable(out io.Writer, steps []session.Step) {
	byPhase := make(map[session.PhaseName]session.Step)
	for _, s := range steps {
		byPhase[s.Phase] = s
	}

	fmt.Fprintf(out, "%-9s %-8s %-8s %s\n", "PHASE", "REQUIRED", "TIMEOUT", "COMMAND")
	for _, phase := range session.PhaseOrder {
		if phase == session.PhaseWait {
			fmt.Fprintf(out, "%-9s %-8s %-8s %s\n", phase, "-", "-", "(組み込み)")
			continue
		}

		step, ok := byPhase[phase]
		required := "no"
		if step.Required {
			required = "yes"
		}
		timeout := "-"
		if step.Timeout > 0 {
			timeout = step.Timeout.String()
		}

		command := "(なし)"
		switch {
		case !ok:
			command = "(無効)"
		case step.Present():
			inv := session.Invocation{
				Phase:      step.Phase,
				Executable: step.Executable,
				Script:     step.Script,
				Args:       append(append([]string{}, step.Args...), derivedArgs[phase]...),
			}
			command = inv.String()
		}
		fmt.Fprintf(out, "%-9s %-8s %-8s %s\n", phase, required, timeout, command)
	}
}
