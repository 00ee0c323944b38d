// Web Push配信サーバーのエントリポイント。
// 購読を受け付け、/notify・/trigger・定期実行で全購読にファンアウトする。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/pushhub/internal/pushserver"
)

func main() {
	os.Exit(run())
}

// run はサーバーを起動し、終了コードを返す。
// deferした後始末はos.Exitの前にすべて実行される。
func run() int {
	cfg, err := pushserver.LoadConfig()
	if err != nil {
		log.Printf("設定の読み込みに失敗: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("起動できません: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := pushserver.New(ctx, cfg)
	if err != nil {
		log.Printf("Push Serverの初期化に失敗: %v", err)
		return 1
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Printf("イベント履歴のクローズに失敗: %v", err)
		}
	}()

	if err := server.Run(ctx); err != nil {
		log.Printf("Push Serverの起動に失敗: %v", err)
		return 1
	}
	return 0
}
