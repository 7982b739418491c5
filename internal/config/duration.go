package config

import (
	"fmt"
	"time"
)

// Duration は設定ファイルで "90s" や "2h" のように書ける時間
type Duration time.Duration

// UnmarshalText は time.ParseDuration の形式を解釈する
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("無効な時間: %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText は time.Duration の文字列表現を返す
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std は time.Duration に変換する
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
