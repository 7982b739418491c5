// Package scripts は番号付きスクリプトの検出とフェーズへの割り当てを担う
//
// # 責務
// - スクリプトディレクトリ内の NN.*.py の検出
// - 番号からフェーズへの割り当て
//
// # 仕様
//   - 01 discover, 02 start, 03 stop, 04 copy, 06 sync, 99 poweroff
//   - 同じ番号が複数ある場合、stop は名前に "all" を含むもの、copy は "last" を含むものを優先
//   - 未知の番号（例: 05 format）は報告するだけで実行しない
//   - 実行順序はフェーズ表が決める。検出結果はコマンドの割り当てにのみ使う
package scripts
