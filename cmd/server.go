// Package main は multicam の状態参照サーバーコマンドの実装です
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"multicam/internal/config"
	"multicam/internal/history"
	"multicam/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		configPath = flag.String("config", "", "設定ファイル (.yaml / .toml)")
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		dsn        = flag.String("history", "", "セッション履歴の保存先 (sqlite パスまたは postgres:// DSN)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("multicam server")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dsn != "" {
		cfg.History.DSN = *dsn
	}

	// 履歴を開く（無効なら履歴のエンドポイントは 503 を返す）
	var repo history.Repository
	repo, err = history.Open(cfg.History.DSN)
	switch {
	case errors.Is(err, history.ErrDisabled):
		log.Println("セッション履歴は無効です")
		repo = nil
	case err != nil:
		log.Fatalf("履歴を開けませんでした: %v", err)
	default:
		defer repo.Close()
	}

	srv := server.New(cfg, repo)

	// サーバーを起動
	log.Printf("multicam サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(context.Background()); err != nil {
		log.Printf("サーバーの起動に失敗しました: %v", err)
		os.Exit(1)
	}
}
