package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Open は DSN に応じたリポジトリを開く
//
//	""                       無効（ErrDisabled）
//	postgres://, postgresql:// PostgreSQL
//	sqlite://path, その他    SQLite のファイルパス
func Open(dsn string) (Repository, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, ErrDisabled
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		repo, err := NewPostgresRepository(dsn)
		if err != nil {
			return nil, fmt.Errorf("PostgreSQL への接続に失敗: %w", err)
		}
		return repo, nil
	default:
		path := strings.TrimPrefix(dsn, "sqlite://")
		if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("履歴ディレクトリの作成に失敗: %w", err)
			}
		}
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			return nil, fmt.Errorf("SQLite の初期化に失敗: %w", err)
		}
		return repo, nil
	}
}
