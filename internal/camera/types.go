package camera

import "strings"

// ServiceSuffix は GoPro が mDNS で広告するサービス名の接尾辞
const ServiceSuffix = "._gopro-web._tcp.local."

// DefaultCachePath は discover ステップが書き出すキャッシュファイル
const DefaultCachePath = "camera_cache.json"

// Camera は discover ステップが検出したカメラ1台
type Camera struct {
	Name string `json:"name"` // mDNS のインスタンス名
	IP   string `json:"ip"`   // カメラの IP アドレス
}

// Serial はインスタンス名からシリアル番号を取り出す
func (c Camera) Serial() string {
	return strings.TrimSuffix(c.Name, ServiceSuffix)
}

// ShortSerial はシリアル番号の末尾4桁を返す（動画ファイル名に使われる）
func (c Camera) ShortSerial() string {
	s := c.Serial()
	if len(s) < 4 {
		return s
	}
	return s[len(s)-4:]
}
