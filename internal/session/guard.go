package session

import "context"

// RecordingGuard は「カメラが録画中」という状態を表すリソース
//
// Acquire 後は Release が必ず一度だけ停止処理を呼び出す。
// Acquire されていなければ Release は何もしない。
type RecordingGuard struct {
	stop     func(ctx context.Context)
	acquired bool
	released bool
}

// NewRecordingGuard は停止処理を指定して RecordingGuard を作成する
func NewRecordingGuard(stop func(ctx context.Context)) *RecordingGuard {
	return &RecordingGuard{stop: stop}
}

// Acquire は録画中状態を取得する
func (g *RecordingGuard) Acquire() {
	g.acquired = true
}

// Held は録画中状態が解放されていないかを返す
func (g *RecordingGuard) Held() bool {
	return g.acquired && !g.released
}

// Release は録画を停止する。2回目以降の呼び出しは何もしない
func (g *RecordingGuard) Release(ctx context.Context) bool {
	if !g.Held() {
		return false
	}
	g.released = true
	g.stop(ctx)
	return true
}
