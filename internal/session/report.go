package session

import (
	"fmt"
	"io"
	"strings"
	"time"
)

func printOK(out io.Writer, format string, args ...any) {
	printTagged(out, "[OK]", format, args...)
}

func printWarn(out io.Writer, format string, args ...any) {
	printTagged(out, "[WARN]", format, args...)
}

func printError(out io.Writer, format string, args ...any) {
	printTagged(out, "[ERROR]", format, args...)
}

func printSkip(out io.Writer, format string, args ...any) {
	printTagged(out, "[SKIP]", format, args...)
}

func printTagged(out io.Writer, tag, format string, args ...any) {
	fmt.Fprintf(out, "%s %s\n", tag, fmt.Sprintf(format, args...))
}

// printResult はフェーズ1つ分の結果を1行で出力する
func printResult(out io.Writer, r StepResult) {
	detail := r.Message
	if detail == "" && r.Err != nil {
		detail = r.Err.Error()
	}

	switch {
	case r.Class == FatalOrchestratorError:
		printError(out, "%s: 致命的エラー: %s", r.Phase, detail)
	case r.Class == CopyError:
		printError(out, "%s: %s", r.Phase, detail)
	case r.Class.Warns():
		printWarn(out, "%s: %s (%s)", r.Phase, detail, r.Class)
	case r.Status == StepSkipped:
		printSkip(out, "%s: %s", r.Phase, detail)
	case r.Status == StepInterrupted:
		printWarn(out, "%s: 中断されました", r.Phase)
	default:
		printOK(out, "%s (%s)", r.Phase, r.Duration.Round(time.Millisecond))
	}

	if r.Class.Warns() || r.Class == FatalOrchestratorError {
		if tail := lastLines(r.Output, 5); tail != "" {
			for _, line := range strings.Split(tail, "\n") {
				fmt.Fprintf(out, "    | %s\n", line)
			}
		}
	}
}

// WriteSummary はセッション全体の結果を出力する
func WriteSummary(out io.Writer, o Outcome) {
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "セッション %s\n", o.SessionID)
	for _, r := range o.Results {
		code := "-"
		if r.ExitCode != nil {
			code = fmt.Sprintf("%d", *r.ExitCode)
		}
		class := string(r.Class)
		if class == "" {
			class = "-"
		}
		fmt.Fprintf(out, "  %-9s %-12s exit=%-3s %s\n", r.Phase, r.Status, code, class)
	}
	if o.TakeDir != "" {
		fmt.Fprintf(out, "  テイク: %s\n", o.TakeDir)
	}
	if o.Interrupted {
		fmt.Fprintln(out, "  割り込みにより中断しました")
	}

	elapsed := o.EndedAt.Sub(o.StartedAt).Round(time.Second)
	switch o.Status {
	case StatusCompleted:
		printOK(out, "%s (%s)", o.Status, elapsed)
	case StatusCompletedWithWarnings:
		printWarn(out, "%s (%s): %s", o.Status, elapsed, joinPhases(o.Failed()))
	default:
		printError(out, "%s (%s): %s", o.Status, elapsed, joinPhases(o.Failed()))
	}
}

func joinPhases(phases []PhaseName) string {
	if len(phases) == 0 {
		return "-"
	}
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
