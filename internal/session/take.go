package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// TakePrefix は copy ステップが作成するテイクディレクトリの接頭辞
	TakePrefix = "Take_"
	// VideosDir はテイクディレクトリ内の動画ディレクトリ名
	VideosDir = "videos"
)

// ErrTakeNotFound はテイクディレクトリが見つからない場合のエラー
var ErrTakeNotFound = errors.New("take directory not found")

// snapshotDirs は root 直下のディレクトリ名を返す。root が無ければ空
func snapshotDirs(root string) map[string]bool {
	dirs := make(map[string]bool)
	entries, err := os.ReadDir(root)
	if err != nil {
		return dirs
	}
	for _, e := range entries {
		if e.IsDir() {
			dirs[e.Name()] = true
		}
	}
	return dirs
}

// LocateTake は copy 後に作成されたテイクディレクトリを探す
//
// before に無い Take_* を優先し、無ければ更新時刻が最も新しい Take_* を返す。
func LocateTake(root string, before map[string]bool) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", err
	}

	var (
		newest     string
		newestTime time.Time
	)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), TakePrefix) {
			continue
		}
		if !before[e.Name()] {
			return filepath.Join(root, e.Name()), nil
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = e.Name()
			newestTime = info.ModTime()
		}
	}

	if newest == "" {
		return "", ErrTakeNotFound
	}
	return filepath.Join(root, newest), nil
}

// videosDir はテイクディレクトリ内の動画ディレクトリを返す
func videosDir(take string) (string, error) {
	dir := filepath.Join(take, VideosDir)
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", ErrTakeNotFound
	}
	return dir, nil
}
