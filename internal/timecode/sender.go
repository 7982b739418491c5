// Package timecode は録画開始・停止のタイムコードマーカーを UDP で送信する
//
// マーカーは "TC HH:MM:SS <unix-ns>" または "STOP HH:MM:SS <unix-ns>" 形式。
// パケットロスに備えて同じ内容を複数回送る。
package timecode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPort     = 9998
	DefaultRepeat   = 5
	DefaultInterval = 10 * time.Millisecond
)

// ErrNoTargets は送信先が設定されていない場合のエラー
var ErrNoTargets = errors.New("no timecode targets")

// Sender はマーカーを全送信先に送る
type Sender struct {
	Targets  []string // host:port
	Repeat   int
	Interval time.Duration
	Now      func() time.Time
}

// NewSender は新しい Sender を作成する
func NewSender(targets []string) *Sender {
	return &Sender{
		Targets:  targets,
		Repeat:   DefaultRepeat,
		Interval: DefaultInterval,
		Now:      time.Now,
	}
}

// Payload はマーカーの送信内容を返す
func Payload(label string, t time.Time) string {
	return fmt.Sprintf("%s %s %d", label, t.Format("15:04:05"), t.UnixNano())
}

// Mark は label のマーカーを全送信先に並行して送る
func (s *Sender) Mark(ctx context.Context, label string) error {
	if len(s.Targets) == 0 {
		return ErrNoTargets
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	payload := []byte(Payload(label, now()))

	g, ctx := errgroup.WithContext(ctx)
	for _, target := range s.Targets {
		target := target
		g.Go(func() error {
			return s.send(ctx, target, payload)
		})
	}
	return g.Wait()
}

func (s *Sender) send(ctx context.Context, target string, payload []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", target)
	if err != nil {
		return fmt.Errorf("%s への接続に失敗: %w", target, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	repeat := s.Repeat
	if repeat <= 0 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		if _, err := conn.Write(payload); err != nil {
			return fmt.Errorf("%s への送信に失敗: %w", target, err)
		}
		if i == repeat-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Interval):
		}
	}
	return nil
}

// NormalizeTarget はポートの無い送信先に既定のポートを付ける
func NormalizeTarget(target string) string {
	if _, _, err := net.SplitHostPort(target); err == nil {
		return target
	}
	return net.JoinHostPort(target, fmt.Sprint(DefaultPort))
}
