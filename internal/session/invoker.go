package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// Invoker は外部ステップの起動を担うインターフェース
type Invoker interface {
	// Lookup はステップのコマンドが起動可能かを確認する
	Lookup(step Step) error

	// Invoke はプロセスを起動し、終了まで待機する
	Invoke(ctx context.Context, inv Invocation) InvokeResult
}

// defaultMaxOutput は保持する出力の上限（末尾を残す）
const defaultMaxOutput = 64 * 1024

// ExecInvoker は os/exec で外部プロセスを起動する Invoker
type ExecInvoker struct {
	Dir       string    // 作業ディレクトリ
	Stdout    io.Writer // 子プロセスの出力をそのまま流す先（nil なら流さない）
	MaxOutput int       // 保持する出力の上限バイト数
	WaitDelay time.Duration
}

// NewExecInvoker は新しい ExecInvoker を作成する
func NewExecInvoker(dir string, stdout io.Writer) *ExecInvoker {
	return &ExecInvoker{
		Dir:       dir,
		Stdout:    stdout,
		MaxOutput: defaultMaxOutput,
		WaitDelay: 5 * time.Second,
	}
}

// Lookup は実行ファイルとスクリプトの存在を確認する
func (e *ExecInvoker) Lookup(step Step) error {
	if !step.Present() {
		return fmt.Errorf("%s: %w", step.Phase, ErrCommandNotFound)
	}
	if _, err := exec.LookPath(e.resolveExecutable(step.Executable)); err != nil {
		return fmt.Errorf("%s: %s: %w", step.Phase, step.Executable, ErrCommandNotFound)
	}
	if step.Script != "" {
		if _, err := os.Stat(e.resolve(step.Script)); err != nil {
			return fmt.Errorf("%s: %s: %w", step.Phase, step.Script, ErrCommandNotFound)
		}
	}
	return nil
}

// Invoke はプロセスを起動して終了状態を分類する
func (e *ExecInvoker) Invoke(ctx context.Context, inv Invocation) InvokeResult {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	argv := inv.Argv()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.Dir
	// Python の出力をバッファリングさせない
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	cmd.WaitDelay = e.WaitDelay

	tail := newTailBuffer(e.MaxOutput)
	var w io.Writer = tail
	if e.Stdout != nil {
		w = io.MultiWriter(e.Stdout, tail)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	startedAt := time.Now()
	err := cmd.Run()
	result := InvokeResult{
		Output:   tail.String(),
		Duration: time.Since(startedAt),
	}

	if err == nil {
		code := 0
		result.ExitCode = &code
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		result.ExitCode = &code
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			result.Err = fmt.Errorf("%s (%s): %w", inv.Phase, inv.Timeout, ErrPhaseTimeout)
		case errors.Is(ctx.Err(), context.Canceled):
			result.Err = fmt.Errorf("%s: %w", inv.Phase, ErrInterrupted)
		default:
			result.Err = fmt.Errorf("%s: exit=%d: %w", inv.Phase, code, ErrNonZeroExit)
		}
		return result
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Err = fmt.Errorf("%s (%s): %w", inv.Phase, inv.Timeout, ErrPhaseTimeout)
	case errors.Is(ctx.Err(), context.Canceled):
		result.Err = fmt.Errorf("%s: %w", inv.Phase, ErrInterrupted)
	default:
		result.Err = classifyStartError(inv.Phase, err)
	}
	return result
}

func (e *ExecInvoker) resolve(path string) string {
	if e.Dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.Dir, path)
}

// resolveExecutable は "./venv/bin/python" のような相対パスを作業ディレクトリ基準にする
// 子プロセスの起動時も exec は相対の Path を Dir 基準で解決する
func (e *ExecInvoker) resolveExecutable(name string) string {
	if filepath.Base(name) == name {
		return name
	}
	return e.resolve(name)
}

func classifyStartError(phase PhaseName, err error) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return fmt.Errorf("%s: %v: %w", phase, err, ErrCommandNotFound)
	}

	// 環境によっては PathError で返る
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %v: %w", phase, err, ErrCommandNotFound)
	}

	return fmt.Errorf("%s: %v: %w", phase, err, ErrStartFailed)
}

// tailBuffer は書き込まれたデータの末尾だけを保持する
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = defaultMaxOutput
	}
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if len(t.buf) > 2*t.max {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.max:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buf) > t.max {
		return string(t.buf[len(t.buf)-t.max:])
	}
	return string(t.buf)
}
