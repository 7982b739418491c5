// Package session は複数カメラ撮影セッションの進行を担う
//
// # 責務
// - フェーズ表に従った外部ステップの逐次実行
// - 録画時間の待機と割り込み処理
// - 失敗の分類（警告・エラー・致命的エラー）とセッション結果の集計
// - 録画停止と電源オフの確実な実行
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - カメラ検出から電源オフまでの一連の流れを実行したい
// - 各フェーズの終了状態を型付きの結果として受け取りたい
//
// # 仕様
//   - フェーズ順序: discover → start → wait → stop → copy → sync → poweroff
//   - すべてのフェーズは直前のフェーズのプロセス終了後に開始する
//   - start 以降はどの経路で終了しても stop を一度だけ試行する
//   - poweroff は常に最後に一度だけ試行する
//   - 再試行は行わない
//   - AbortedFatal は必須フェーズのコマンドを起動できない場合のみ
//
// # 前提要件
//   - 各フェーズのコマンド（既定では番号付き Python スクリプト）
//   - copy フェーズの出力先が作成可能であること
package session
