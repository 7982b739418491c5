// Package camera は検出済み GoPro カメラの一覧を扱う
//
// # 責務
// - discover ステップが書き出すカメラキャッシュの読み込み
// - mDNS インスタンス名からのシリアル番号の導出
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - セッション中に何台のカメラが検出されたかを確認したい
// - ステータス API でカメラ一覧を返したい
//
// # 仕様
//   - キャッシュ形式: [{"name": "...", "ip": "..."}]
//   - discover ステップはカメラが見つかった場合のみキャッシュを更新する
//   - NotBefore より古いキャッシュは今回のセッションの結果ではないとみなす
package camera
