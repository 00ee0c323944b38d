package webpush

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy は一時的な送信失敗に対するリトライ設定。
type RetryPolicy struct {
	// Attempts は初回を除くリトライ回数。0以下ならリトライしない。
	Attempts int
	// Delay はリトライまでの固定の待機時間。
	Delay time.Duration
	// AttemptTimeout は1回の送信に許す時間。0以下なら呼び出し元のcontextに任せる。
	AttemptTimeout time.Duration
}

// WithRetry は一時的な失敗のみを固定間隔でリトライするTransportを返す。
// 恒久的な失敗（購読の失効など）は即座に返す。
// AttemptTimeoutを超えた送信は一時的な失敗として次の試行に回す。
func WithRetry(t Transport, policy RetryPolicy) Transport {
	if policy.Attempts <= 0 && policy.AttemptTimeout <= 0 {
		return t
	}
	return TransportFunc(func(ctx context.Context, sub Subscription, payload []byte) error {
		var err error
		for attempt := 0; attempt <= policy.Attempts; attempt++ {
			if attempt > 0 {
				timer := time.NewTimer(policy.Delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return errors.Join(err, ctx.Err())
				case <-timer.C:
				}
			}

			if err = sendAttempt(ctx, t, sub, payload, policy.AttemptTimeout); err == nil {
				return nil
			}
			if !errors.Is(err, ErrTransient) {
				return err
			}
		}
		return err
	})
}

// sendAttempt は1回分の送信を行う。試行ごとの期限切れはErrTransientに分類し直す。
func sendAttempt(ctx context.Context, t Transport, sub Subscription, payload []byte, timeout time.Duration) error {
	if timeout <= 0 {
		return t.Send(ctx, sub, payload)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := t.Send(attemptCtx, sub, payload)
	if err != nil && ctx.Err() == nil && attemptCtx.Err() != nil && !errors.Is(err, ErrTransient) {
		return &SendError{Endpoint: sub.Endpoint, Err: ErrTransient, Detail: err.Error()}
	}
	return err
}
