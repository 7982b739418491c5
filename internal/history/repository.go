// Package history はセッション結果の履歴を保存する
//
// バックエンドは SQLite（既定）と PostgreSQL。DSN が postgres:// で始まる場合は PostgreSQL を使う。
// オーケストレーター自身は永続状態を持たない。保存は CLI がセッション終了後に行う。
package history

import (
	"context"
	"errors"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrDisabled        = errors.New("history is disabled")
)

// Repository はセッション履歴の保存先
type Repository interface {
	SaveSession(ctx context.Context, record *SessionRecord) error

	// ListSessions は終了時刻の新しい順に最大 limit 件を返す。limit <= 0 なら全件
	ListSessions(ctx context.Context, limit int) ([]SessionRecord, error)

	GetSession(ctx context.Context, id string) (*SessionRecord, error)

	Close() error
}
