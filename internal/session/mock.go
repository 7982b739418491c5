package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockInvoker はテスト用のモック Invoker 実装
type MockInvoker struct {
	mu          sync.Mutex
	invocations []Invocation
	exitCodes   map[PhaseName]int
	missing     map[PhaseName]bool
	errs        map[PhaseName]error
	hooks       map[PhaseName]func(ctx context.Context, inv Invocation)
}

// NewMockInvoker は全フェーズが成功する MockInvoker を作成する
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		exitCodes: make(map[PhaseName]int),
		missing:   make(map[PhaseName]bool),
		errs:      make(map[PhaseName]error),
		hooks:     make(map[PhaseName]func(ctx context.Context, inv Invocation)),
	}
}

// SetExitCode は指定フェーズの終了コードを設定する
func (m *MockInvoker) SetExitCode(phase PhaseName, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exitCodes[phase] = code
}

// SetMissing は指定フェーズのコマンドを見つからない扱いにする
func (m *MockInvoker) SetMissing(phase PhaseName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing[phase] = true
}

// SetError は指定フェーズの起動エラーを設定する
func (m *MockInvoker) SetError(phase PhaseName, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[phase] = err
}

// OnInvoke は指定フェーズの起動時に呼ばれるフックを設定する
func (m *MockInvoker) OnInvoke(phase PhaseName, hook func(ctx context.Context, inv Invocation)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[phase] = hook
}

// Lookup はモックのコマンド存在確認
func (m *MockInvoker) Lookup(step Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !step.Present() || m.missing[step.Phase] {
		return fmt.Errorf("%s: %w", step.Phase, ErrCommandNotFound)
	}
	return nil
}

// Invoke は起動を記録し、設定された結果を返す
func (m *MockInvoker) Invoke(ctx context.Context, inv Invocation) InvokeResult {
	m.mu.Lock()
	m.invocations = append(m.invocations, inv)
	hook := m.hooks[inv.Phase]
	missing := m.missing[inv.Phase]
	err := m.errs[inv.Phase]
	code, hasCode := m.exitCodes[inv.Phase]
	m.mu.Unlock()

	if hook != nil {
		hook(ctx, inv)
	}

	if missing {
		return InvokeResult{Err: fmt.Errorf("%s: %w", inv.Phase, ErrCommandNotFound)}
	}
	if err != nil {
		return InvokeResult{Err: err}
	}

	result := InvokeResult{
		ExitCode: &code,
		Output:   fmt.Sprintf("mock %s\n", inv.Phase),
		Duration: time.Millisecond,
	}
	if hasCode && code != 0 {
		result.Err = fmt.Errorf("%s: exit=%d: %w", inv.Phase, code, ErrNonZeroExit)
	}
	return result
}

// Invocations は記録された起動の一覧を返す
func (m *MockInvoker) Invocations() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Invocation, len(m.invocations))
	copy(result, m.invocations)
	return result
}

// Count は指定フェーズの起動回数を返す
func (m *MockInvoker) Count(phase PhaseName) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, inv := range m.invocations {
		if inv.Phase == phase {
			n++
		}
	}
	return n
}

// Phases は起動されたフェーズ名を順に返す
func (m *MockInvoker) Phases() []PhaseName {
	m.mu.Lock()
	defer m.mu.Unlock()

	phases := make([]PhaseName, 0, len(m.invocations))
	for _, inv := range m.invocations {
		phases = append(phases, inv.Phase)
	}
	return phases
}
