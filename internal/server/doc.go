// Package server は、撮影セッションの状態を参照するHTTPサーバーを管理します。
//
// このパッケージは、セッション履歴・フェーズ表・カメラキャッシュを
// 読み取り専用のJSON APIとして公開します。撮影セッションの実行は
// CLI が担当し、サーバーはセッションを開始しません。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - セッション履歴（history.Repository）の一覧と詳細の配信
//   - 設定とスクリプトディレクトリから解決したフェーズ表の配信
//   - discover ステップが書き出したカメラキャッシュの配信
//   - APIドキュメント（OpenAPI）の配信
//
// 仕様:
//   - ルーティングには gin を使用
//   - APIドキュメントは openapi.yaml を埋め込んで配信
//   - 履歴が無効な場合、履歴のエンドポイントは 503 を返す
//   - グレースフルシャットダウンに対応
package server
