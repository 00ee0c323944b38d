package pushserver

import (
	"context"
	"log"
	"time"

	"github.com/nao1215/pushhub/pkg/webpush"
)

// reminderMessage は定期トリガーで送るメッセージを返す。
func (s *Server) reminderMessage() webpush.Message {
	return webpush.Message{
		Title:              "Reminder: " + s.cfg.TriggerTitle,
		Body:               s.cfg.TriggerBody,
		Icon:               "/favicon.ico",
		Badge:              "/favicon.ico",
		Tag:                "scheduled-reminder",
		RequireInteraction: true,
	}
}

// runScheduler はctxがキャンセルされるまでinterval毎にファンアウトする。
func (s *Server) runScheduler(ctx context.Context, interval time.Duration) {
	payload, err := s.reminderMessage().Encode()
	if err != nil {
		log.Printf("[Scheduler] ペイロードの生成に失敗したため定期トリガーを無効化: %v", err)
		return
	}

	log.Printf("[Scheduler] 定期トリガーを開始: interval=%s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Scheduler] 定期トリガーを停止")
			return
		case <-ticker.C:
			s.scheduledTick(ctx, payload)
		}
	}
}

// scheduledTick は1回分の定期トリガーを実行する。購読が無ければ何もしない。
func (s *Server) scheduledTick(ctx context.Context, payload []byte) {
	if s.registry.Count() == 0 {
		log.Println("[Scheduler] 購読が無いためスキップ")
		return
	}
	result := s.broadcast(ctx, "schedule", payload)
	log.Printf("[Scheduler] Sent to %d subscribers. Failed: %d", result.Delivered, result.Failed)
}
