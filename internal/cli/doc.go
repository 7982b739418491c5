// Package cli は multicam コマンドのサブコマンドを定義します。
//
// run はセッションを1回実行し、結果に応じた終了コードを返します。
// 引数や設定の誤りはセッション開始前に検出し、終了コード 2 を返します。
package cli
