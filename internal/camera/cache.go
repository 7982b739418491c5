package camera

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// LoadCache はキャッシュファイルからカメラ一覧を読み込む
func LoadCache(path string) ([]Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cameras []Camera
	if err := json.Unmarshal(data, &cameras); err != nil {
		return nil, fmt.Errorf("カメラキャッシュの解析に失敗: %s: %w", path, err)
	}
	return cameras, nil
}

// Cache はセッション中のカメラキャッシュを表す
type Cache struct {
	Path      string
	NotBefore time.Time // これより古いキャッシュは無視する（ゼロ値なら常に有効）
}

// NewCache は新しい Cache を作成する
func NewCache(path string, notBefore time.Time) *Cache {
	if path == "" {
		path = DefaultCachePath
	}
	return &Cache{Path: path, NotBefore: notBefore}
}

// Cameras は有効なキャッシュのカメラ一覧を返す。キャッシュが無い、または古い場合は空
func (c *Cache) Cameras() ([]Camera, error) {
	info, err := os.Stat(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !c.NotBefore.IsZero() && info.ModTime().Before(c.NotBefore) {
		log.Printf("カメラキャッシュが更新されていません: %s (%s)", c.Path, info.ModTime().Format(time.RFC3339))
		return nil, nil
	}
	return LoadCache(c.Path)
}

// Count は検出済みカメラの台数を返す
func (c *Cache) Count() (int, error) {
	cameras, err := c.Cameras()
	if err != nil {
		return 0, err
	}
	return len(cameras), nil
}
