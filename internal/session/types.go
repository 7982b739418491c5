package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PhaseName はパイプライン上のフェーズ名を表す
type PhaseName string

const (
	PhaseDiscover PhaseName = "discover" // カメラ検出と初期設定
	PhaseStart    PhaseName = "start"    // 録画開始
	PhaseWait     PhaseName = "wait"     // 録画時間の待機
	PhaseStop     PhaseName = "stop"     // 録画停止
	PhaseCopy     PhaseName = "copy"     // コピーとシーン振り分け
	PhaseSync     PhaseName = "sync"     // カメラ間の同期
	PhasePowerOff PhaseName = "poweroff" // 電源オフ
)

// PhaseOrder はフェーズの実行順序
var PhaseOrder = []PhaseName{
	PhaseDiscover,
	PhaseStart,
	PhaseWait,
	PhaseStop,
	PhaseCopy,
	PhaseSync,
	PhasePowerOff,
}

// Index はフェーズの順序キーを返す。未知のフェーズは -1
func (p PhaseName) Index() int {
	for i, name := range PhaseOrder {
		if name == p {
			return i
		}
	}
	return -1
}

// Known は定義済みのフェーズかどうかを返す
func (p PhaseName) Known() bool {
	return p.Index() >= 0
}

// Class はフェーズ失敗の分類を表す
type Class string

const (
	ClassNone              Class = ""
	DiscoveryWarning       Class = "DiscoveryWarning"
	RecordControlWarning   Class = "RecordControlWarning"
	CopyError              Class = "CopyError"
	SyncSkipped            Class = "SyncSkipped"
	SyncWarning            Class = "SyncWarning"
	PowerOffWarning        Class = "PowerOffWarning"
	FatalOrchestratorError Class = "FatalOrchestratorError"
)

// Warns はセッション全体を「警告あり」にする分類かどうかを返す
func (c Class) Warns() bool {
	switch c {
	case DiscoveryWarning, RecordControlWarning, CopyError, SyncWarning, PowerOffWarning:
		return true
	default:
		return false
	}
}

// Status はセッション全体の結果を表す
type Status string

const (
	StatusCompleted             Status = "Completed"
	StatusCompletedWithWarnings Status = "CompletedWithWarnings"
	StatusAbortedFatal          Status = "AbortedFatal"
)

// StepStatus は個々のフェーズの実行状態を表す
type StepStatus string

const (
	StepOK          StepStatus = "ok"          // 正常終了
	StepFailed      StepStatus = "failed"      // 非ゼロ終了・起動失敗・タイムアウト
	StepSkipped     StepStatus = "skipped"     // 実行しなかった
	StepInterrupted StepStatus = "interrupted" // 割り込みで中断
)

var (
	ErrCommandNotFound = errors.New("command not found")
	ErrStartFailed     = errors.New("command could not be started")
	ErrPhaseTimeout    = errors.New("phase timed out")
	ErrInterrupted     = errors.New("interrupted")
	ErrNonZeroExit     = errors.New("non-zero exit")
)

// Step はフェーズ表の1行を表す
type Step struct {
	Phase      PhaseName     // 順序キー
	Executable string        // 実行ファイル（空なら未設定）
	Script     string        // スクリプトのパス（任意）
	Args       []string      // 設定で与えられた追加引数
	Required   bool          // 起動できない場合に致命的エラーとするか
	Timeout    time.Duration // 0 ならタイムアウトなし
}

// Present はステップにコマンドが設定されているかを返す
func (s Step) Present() bool {
	return s.Executable != ""
}

// Invocation は1回の外部プロセス起動を表す
type Invocation struct {
	Phase      PhaseName
	Executable string
	Script     string
	Args       []string // 設定の追加引数のあとに、セッションから導出した引数が続く
	Timeout    time.Duration
}

// Argv は実行する引数列全体を返す
func (i Invocation) Argv() []string {
	argv := []string{i.Executable}
	if i.Script != "" {
		argv = append(argv, i.Script)
	}
	return append(argv, i.Args...)
}

// String はログ出力用のコマンド表記を返す
func (i Invocation) String() string {
	return strings.Join(i.Argv(), " ")
}

// InvokeResult は外部プロセスの終了状態
type InvokeResult struct {
	ExitCode *int
	Output   string
	Duration time.Duration
	Err      error
}

// StepResult はフェーズ1つ分の結果
type StepResult struct {
	Phase     PhaseName
	Status    StepStatus
	Class     Class
	Args      []string
	ExitCode  *int
	Output    string
	Message   string
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Invoked は外部プロセスを起動したかどうかを返す
func (r StepResult) Invoked() bool {
	return r.Status == StepOK || r.Status == StepFailed || (r.Status == StepInterrupted && r.Phase != PhaseWait)
}

// SessionConfig はセッション開始時に与えられる設定。生成後は変更しない
type SessionConfig struct {
	Duration   time.Duration // 録画時間
	OutputPath string        // コピー先のルート
}

// NewSessionConfig は秒単位の録画時間と出力先から SessionConfig を作成する
func NewSessionConfig(durationSec int, outputPath string) (SessionConfig, error) {
	cfg := SessionConfig{
		Duration:   time.Duration(durationSec) * time.Second,
		OutputPath: outputPath,
	}
	if err := cfg.Validate(); err != nil {
		return SessionConfig{}, err
	}
	return cfg, nil
}

// Validate はセッション設定の妥当性を検証する
func (c SessionConfig) Validate() error {
	if c.Duration < 0 {
		return fmt.Errorf("録画時間は0以上である必要があります: %s", c.Duration)
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return errors.New("出力先が指定されていません")
	}
	return nil
}

// Outcome はセッション全体の結果
type Outcome struct {
	SessionID   string
	Config      SessionConfig
	StartedAt   time.Time
	EndedAt     time.Time
	Results     []StepResult
	Status      Status
	Interrupted bool
	TakeDir     string // sync に渡した Take ディレクトリ（見つかった場合）
	Err         error  // フェーズに属さない致命的エラー
}

// Result は指定フェーズの結果を返す
func (o Outcome) Result(phase PhaseName) (StepResult, bool) {
	for _, r := range o.Results {
		if r.Phase == phase {
			return r, true
		}
	}
	return StepResult{}, false
}

// Succeeded は正常終了したフェーズ名を順に返す
func (o Outcome) Succeeded() []PhaseName {
	var phases []PhaseName
	for _, r := range o.Results {
		if r.Status == StepOK && !r.Class.Warns() {
			phases = append(phases, r.Phase)
		}
	}
	return phases
}

// Failed は警告・エラーとなったフェーズ名を順に返す
func (o Outcome) Failed() []PhaseName {
	var phases []PhaseName
	for _, r := range o.Results {
		if r.Class.Warns() || r.Class == FatalOrchestratorError {
			phases = append(phases, r.Phase)
		}
	}
	return phases
}

// ExitCode はCLIの終了コードを返す
func (o Outcome) ExitCode() int {
	if o.Status == StatusAbortedFatal {
		return 1
	}
	return 0
}

func statusOf(results []StepResult, interrupted bool) Status {
	warn := interrupted
	for _, r := range results {
		if r.Class == FatalOrchestratorError {
			return StatusAbortedFatal
		}
		if r.Class.Warns() {
			warn = true
		}
	}
	if warn {
		return StatusCompletedWithWarnings
	}
	return StatusCompleted
}
