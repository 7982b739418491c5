package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Marker はタイムコードマーカーを送信するインターフェース
type Marker interface {
	Mark(ctx context.Context, label string) error
}

// CameraCounter は検出済みカメラ台数を返すインターフェース
type CameraCounter interface {
	Count() (int, error)
}

// DefaultCleanupTimeout は stop と poweroff にタイムアウトが無い場合の上限
const DefaultCleanupTimeout = time.Minute

// Orchestrator はフェーズ表に従ってセッションを進行する
type Orchestrator struct {
	Steps   []Step
	Invoker Invoker
	Out     io.Writer // フェーズ結果とサマリーの出力先

	// Dir はステップの作業ディレクトリ。Invoker と同じ値にする
	// 相対の出力先はこれを基準に作成・走査する（空ならカレント）
	Dir string

	Marker    Marker        // nil ならマーカーを送らない
	Cameras   CameraCounter // nil ならカメラ台数を確認しない
	Countdown bool          // 待機中に残り時間を表示する

	CleanupTimeout time.Duration
	Now            func() time.Time
	NewID          func() string
}

// NewOrchestrator は新しい Orchestrator を作成する
func NewOrchestrator(steps []Step, invoker Invoker, out io.Writer) *Orchestrator {
	return &Orchestrator{
		Steps:          steps,
		Invoker:        invoker,
		Out:            out,
		CleanupTimeout: DefaultCleanupTimeout,
		Now:            time.Now,
		NewID:          uuid.NewString,
	}
}

// Run はセッションを最初から最後まで実行する
//
// ctx のキャンセルは割り込みとして扱う。録画開始後は停止を、
// その後は電源オフを、キャンセルされていないコンテキストで実行する。
func (o *Orchestrator) Run(ctx context.Context, cfg SessionConfig) Outcome {
	r := &run{
		o:           o,
		cfg:         cfg,
		steps:       make(map[PhaseName]Step),
		unavailable: make(map[PhaseName]error),
	}
	for _, s := range o.Steps {
		r.steps[s.Phase] = s
	}
	r.outcome = Outcome{
		SessionID: o.newID(),
		Config:    cfg,
		StartedAt: o.now(),
	}

	log.Printf("セッション開始: id=%s 録画時間=%s 出力先=%s", r.outcome.SessionID, cfg.Duration, cfg.OutputPath)

	if err := cfg.Validate(); err != nil {
		r.outcome.Err = err
		return r.finish()
	}
	if !r.preflight() {
		return r.finish()
	}

	r.execute(ctx)
	return r.finish()
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

func (o *Orchestrator) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return io.Discard
}

// run は1回のセッション実行の状態
type run struct {
	o           *Orchestrator
	cfg         SessionConfig
	steps       map[PhaseName]Step
	unavailable map[PhaseName]error // 事前確認で起動できなかった任意フェーズ
	outcome     Outcome
	current     PhaseName
	aborted     bool
	copyFailed  bool
	before      map[string]bool
}

// preflight はカメラに触れる前に各コマンドを解決する。必須フェーズが欠けていれば false
func (r *run) preflight() bool {
	ok := true
	for _, phase := range PhaseOrder {
		if phase == PhaseWait {
			continue
		}
		step, exists := r.steps[phase]
		if !exists || !step.Present() {
			if isRequired(phase, step, exists) {
				r.record(StepResult{
					Phase:     phase,
					Status:    StepFailed,
					Class:     FatalOrchestratorError,
					Err:       fmt.Errorf("%s: %w", phase, ErrCommandNotFound),
					Message:   "必須フェーズのコマンドが設定されていません",
					StartedAt: r.o.now(),
				})
				ok = false
			}
			continue
		}

		if err := r.o.Invoker.Lookup(step); err != nil {
			if step.Required {
				r.record(StepResult{
					Phase:     phase,
					Status:    StepFailed,
					Class:     FatalOrchestratorError,
					Err:       err,
					Message:   fmt.Sprintf("必須フェーズのコマンドを起動できません: %v", err),
					StartedAt: r.o.now(),
				})
				ok = false
				continue
			}
			log.Printf("任意フェーズのコマンドが見つかりません: %v", err)
			r.unavailable[phase] = err
		}
	}
	return ok
}

func isRequired(phase PhaseName, step Step, exists bool) bool {
	if exists {
		return step.Required
	}
	switch phase {
	case PhaseStop, PhaseCopy, PhasePowerOff:
		return true
	default:
		return false
	}
}

// execute はフェーズを順に実行する
func (r *run) execute(ctx context.Context) {
	cleanup := context.WithoutCancel(ctx)

	defer r.powerOff(cleanup)
	guard := NewRecordingGuard(r.stopRecording)
	defer guard.Release(cleanup)
	defer r.recoverPanic()

	r.discover(ctx)
	if r.halted(ctx) {
		return
	}

	guard.Acquire()
	r.startRecording(ctx)
	if r.halted(ctx) {
		return
	}

	r.wait(ctx)
	if r.halted(ctx) {
		return
	}

	guard.Release(cleanup)
	if r.halted(ctx) {
		return
	}

	r.copyFootage(ctx)
	if r.halted(ctx) {
		return
	}

	r.syncTake(ctx)
}

// halted は以降の通常フェーズを実行しない場合に true を返す
func (r *run) halted(ctx context.Context) bool {
	if ctx.Err() != nil {
		if !r.outcome.Interrupted {
			log.Printf("割り込みを検知しました。録画停止と電源オフに進みます")
		}
		r.outcome.Interrupted = true
		return true
	}
	return r.aborted
}

func (r *run) discover(ctx context.Context) {
	res, ok := r.invoke(ctx, PhaseDiscover, nil, DiscoveryWarning)
	if !ok || res.Status != StepOK || r.o.Cameras == nil {
		return
	}

	n, err := r.o.Cameras.Count()
	switch {
	case err != nil:
		r.downgrade(PhaseDiscover, DiscoveryWarning, fmt.Sprintf("カメラ一覧を読み込めません: %v", err))
	case n == 0:
		r.downgrade(PhaseDiscover, DiscoveryWarning, "カメラが見つかりませんでした")
	default:
		log.Printf("カメラを検出しました: %d台", n)
	}
}

func (r *run) startRecording(ctx context.Context) {
	res, ok := r.invoke(ctx, PhaseStart, nil, RecordControlWarning)
	if ok && res.Status == StepOK {
		r.mark(ctx, "TC")
	}
}

func (r *run) stopRecording(ctx context.Context) {
	res, ok := r.invoke(ctx, PhaseStop, nil, RecordControlWarning)
	if ok && res.Status == StepOK {
		r.mark(ctx, "STOP")
	}
}

func (r *run) powerOff(ctx context.Context) {
	r.invoke(ctx, PhasePowerOff, nil, PowerOffWarning)
}

// wait は録画時間だけ待機する。割り込みがあれば途中で戻る
func (r *run) wait(ctx context.Context) {
	r.current = PhaseWait
	res := StepResult{Phase: PhaseWait, StartedAt: r.o.now()}

	d := r.cfg.Duration
	if d == 0 {
		res.Status = StepSkipped
		res.Message = "録画時間が0秒のため待機を省略します"
		r.record(res)
		return
	}

	log.Printf("録画中: %s 待機します", d)
	began := time.Now()
	deadline := began.Add(d)

	timer := time.NewTimer(d)
	defer timer.Stop()

	var tick <-chan time.Time
	if r.o.Countdown {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	out := r.o.out()
loop:
	for {
		select {
		case <-timer.C:
			res.Status = StepOK
			break loop
		case <-ctx.Done():
			res.Status = StepInterrupted
			res.Err = fmt.Errorf("%s: %w", PhaseWait, ErrInterrupted)
			res.Message = "待機中に割り込まれました"
			r.outcome.Interrupted = true
			break loop
		case <-tick:
			fmt.Fprintf(out, "\r残り %s   ", time.Until(deadline).Round(time.Second))
		}
	}
	if tick != nil {
		fmt.Fprintln(out)
	}

	res.Duration = time.Since(began)
	r.record(res)
}

// copyFootage は出力先を作成して copy ステップを実行する
func (r *run) copyFootage(ctx context.Context) {
	r.current = PhaseCopy
	root := r.outputRoot()
	if err := os.MkdirAll(root, 0o755); err != nil {
		r.record(StepResult{
			Phase:     PhaseCopy,
			Status:    StepFailed,
			Class:     CopyError,
			Err:       err,
			Message:   fmt.Sprintf("出力先を作成できません: %v", err),
			StartedAt: r.o.now(),
		})
		r.copyFailed = true
		return
	}

	r.before = snapshotDirs(root)
	// copy には指定された出力先をそのまま渡す
	res, ok := r.invoke(ctx, PhaseCopy, []string{r.cfg.OutputPath}, CopyError)
	if !ok || res.Status != StepOK {
		r.copyFailed = true
	}
}

// outputRoot は作業ディレクトリから見た出力先を返す
// Dir がある場合は絶対パスにして、sync に渡すパスが作業ディレクトリに依存しないようにする
func (r *run) outputRoot() string {
	path := r.cfg.OutputPath
	if r.o.Dir == "" || filepath.IsAbs(path) {
		return path
	}
	path = filepath.Join(r.o.Dir, path)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// syncTake は今回のテイクの動画ディレクトリに対して sync ステップを実行する
func (r *run) syncTake(ctx context.Context) {
	r.current = PhaseSync
	skip := func(msg string) {
		r.record(StepResult{
			Phase:     PhaseSync,
			Status:    StepSkipped,
			Class:     SyncSkipped,
			Message:   msg,
			StartedAt: r.o.now(),
		})
	}

	if r.copyFailed {
		skip("copy が失敗したため実行しません")
		return
	}
	step, exists := r.steps[PhaseSync]
	if !exists || !step.Present() {
		skip("sync ステップが設定されていません")
		return
	}
	if err := r.unavailable[PhaseSync]; err != nil {
		skip(fmt.Sprintf("sync コマンドが見つかりません: %v", err))
		return
	}

	take, err := LocateTake(r.outputRoot(), r.before)
	if err != nil {
		skip(fmt.Sprintf("テイクディレクトリが見つかりません: %v", err))
		return
	}
	r.outcome.TakeDir = take

	videos, err := videosDir(take)
	if err != nil {
		skip(fmt.Sprintf("動画ディレクトリが見つかりません: %v", err))
		return
	}

	r.invoke(ctx, PhaseSync, []string{videos}, SyncWarning)
}

// invoke はフェーズのコマンドを起動して結果を記録する
//
// コマンドが未設定、または事前確認で見つからなかった場合は起動せずにスキップとして記録し、
// ok に false を返す。
func (r *run) invoke(ctx context.Context, phase PhaseName, extra []string, failClass Class) (StepResult, bool) {
	r.current = phase
	res := StepResult{Phase: phase, StartedAt: r.o.now()}

	step, exists := r.steps[phase]
	if !exists || !step.Present() {
		res.Status = StepSkipped
		res.Message = "コマンドが設定されていません"
		r.record(res)
		return res, false
	}
	if err := r.unavailable[phase]; err != nil {
		res.Status = StepSkipped
		res.Class = missingClass(phase, failClass)
		res.Err = err
		res.Message = fmt.Sprintf("コマンドが見つかりません: %v", err)
		r.record(res)
		return res, false
	}

	args := make([]string, 0, len(step.Args)+len(extra))
	args = append(args, step.Args...)
	args = append(args, extra...)

	inv := Invocation{
		Phase:      phase,
		Executable: step.Executable,
		Script:     step.Script,
		Args:       args,
		Timeout:    step.Timeout,
	}
	if inv.Timeout == 0 && (phase == PhaseStop || phase == PhasePowerOff) {
		inv.Timeout = r.o.CleanupTimeout
	}

	log.Printf("%s を実行します: %s", phase, inv)
	ir := r.callInvoker(ctx, inv)

	res.Args = args
	res.ExitCode = ir.ExitCode
	res.Output = ir.Output
	res.Err = ir.Err
	res.Duration = r.o.now().Sub(res.StartedAt)

	switch {
	case ir.Err == nil:
		res.Status = StepOK
	case errors.Is(ir.Err, ErrInterrupted):
		res.Status = StepInterrupted
		r.outcome.Interrupted = true
	case errors.Is(ir.Err, ErrCommandNotFound) || errors.Is(ir.Err, ErrStartFailed):
		res.Status = StepFailed
		if step.Required {
			res.Class = FatalOrchestratorError
			r.aborted = true
		} else {
			res.Class = missingClass(phase, failClass)
		}
	default:
		res.Status = StepFailed
		res.Class = failClass
	}

	r.record(res)
	return res, true
}

// callInvoker は Invoker のパニックを起動失敗として扱う
func (r *run) callInvoker(ctx context.Context, inv Invocation) (result InvokeResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = InvokeResult{Err: fmt.Errorf("%s: panic: %v: %w", inv.Phase, rec, ErrStartFailed)}
		}
	}()
	return r.o.Invoker.Invoke(ctx, inv)
}

func missingClass(phase PhaseName, failClass Class) Class {
	if phase == PhaseSync {
		return SyncSkipped
	}
	return failClass
}

// mark はタイムコードマーカーを送る。失敗しても結果には影響しない
func (r *run) mark(ctx context.Context, label string) {
	if r.o.Marker == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("警告: マーカー送信でパニック: %v", rec)
		}
	}()
	if err := r.o.Marker.Mark(ctx, label); err != nil {
		log.Printf("警告: %s マーカーを送信できません: %v", label, err)
	}
}

// recoverPanic は実行中のパニックを致命的エラーとして記録する
func (r *run) recoverPanic() {
	rec := recover()
	if rec == nil {
		return
	}
	log.Printf("パニックが発生しました: %v", rec)
	r.aborted = true

	err := fmt.Errorf("panic: %v", rec)
	for i := range r.outcome.Results {
		if r.outcome.Results[i].Phase == r.current {
			r.outcome.Results[i].Class = FatalOrchestratorError
			r.outcome.Results[i].Err = err
			return
		}
	}
	phase := r.current
	if phase == "" {
		phase = PhaseDiscover
	}
	r.record(StepResult{
		Phase:     phase,
		Status:    StepFailed,
		Class:     FatalOrchestratorError,
		Err:       err,
		StartedAt: r.o.now(),
	})
}

// downgrade は記録済みの結果に警告を付ける
func (r *run) downgrade(phase PhaseName, class Class, msg string) {
	for i := range r.outcome.Results {
		if r.outcome.Results[i].Phase == phase {
			r.outcome.Results[i].Class = class
			r.outcome.Results[i].Message = msg
			printResult(r.o.out(), r.outcome.Results[i])
			return
		}
	}
}

func (r *run) record(res StepResult) {
	r.outcome.Results = append(r.outcome.Results, res)
	printResult(r.o.out(), res)
}

// finish は未実行のフェーズを補い、セッション結果を確定する
func (r *run) finish() Outcome {
	seen := make(map[PhaseName]bool)
	for _, res := range r.outcome.Results {
		seen[res.Phase] = true
	}
	for _, phase := range PhaseOrder {
		if seen[phase] {
			continue
		}
		r.outcome.Results = append(r.outcome.Results, StepResult{
			Phase:   phase,
			Status:  StepSkipped,
			Message: "実行されませんでした",
		})
	}
	sort.SliceStable(r.outcome.Results, func(i, j int) bool {
		return r.outcome.Results[i].Phase.Index() < r.outcome.Results[j].Phase.Index()
	})

	r.outcome.EndedAt = r.o.now()
	r.outcome.Status = statusOf(r.outcome.Results, r.outcome.Interrupted)
	if r.outcome.Err != nil {
		r.outcome.Status = StatusAbortedFatal
	}

	WriteSummary(r.o.out(), r.outcome)
	log.Printf("セッション終了: id=%s status=%s", r.outcome.SessionID, r.outcome.Status)
	return r.outcome
}
