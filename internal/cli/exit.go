package cli

import "fmt"

// 終了コード
const (
	ExitOK    = 0 // Completed / CompletedWithWarnings
	ExitFatal = 1 // AbortedFatal または実行時エラー
	ExitUsage = 2 // 引数・設定の誤り（セッション開始前）
)

// ExitError は main に終了コードを伝えるエラー
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

func failure(err error) error {
	return &ExitError{Code: ExitFatal, Err: err}
}
