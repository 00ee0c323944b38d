package delivery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pushhub/pkg/webpush"
)

// Registry はエンジンが必要とするレジストリの操作。
type Registry interface {
	List() []webpush.Subscription
	Remove(endpoint string) bool
	RecordFailure(endpoint string) int
	RecordSuccess(endpoint string)
}

const (
	// defaultConcurrency は同時に実行する送信の上限のデフォルト値。
	defaultConcurrency = 16
	// defaultSendTimeout は1件の送信に許す時間のデフォルト値。
	defaultSendTimeout = 10 * time.Second
)

// Engine は購読全体へのファンアウトを行う。
type Engine struct {
	// registry は配信先の購読を保持するレジストリ。
	registry Registry
	// transport は1件ずつの送信を担うトランスポート。
	transport webpush.Transport
	// concurrency は同時に実行する送信の上限。
	concurrency int
	// sendTimeout は1件の送信のタイムアウト。
	sendTimeout time.Duration
	// evictAfter は購読を削除するまでの恒久的失敗の連続回数。0なら削除しない。
	evictAfter int
	// verbose がtrueなら成功した送信もログに出力する。
	verbose bool
	// observers はファンアウト完了時に呼ばれるコールバック。
	observers []func(Result)
}

// Option はEngineの設定を変更する関数。
type Option func(*Engine)

// WithConcurrency は同時に実行する送信の上限を設定する。
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithSendTimeout は1件の送信のタイムアウトを設定する。
func WithSendTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.sendTimeout = d
		}
	}
}

// WithEvictAfter は恒久的失敗がn回続いた購読を削除するよう設定する。
func WithEvictAfter(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.evictAfter = n
		}
	}
}

// WithVerbose は成功した送信もログに出力するかを設定する。
func WithVerbose(verbose bool) Option {
	return func(e *Engine) {
		e.verbose = verbose
	}
}

// WithObserver はファンアウト完了時に結果を受け取るコールバックを追加する。
func WithObserver(fn func(Result)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.observers = append(e.observers, fn)
		}
	}
}

// NewEngine は新しい配信エンジンを生成する。
func NewEngine(registry Registry, transport webpush.Transport, opts ...Option) *Engine {
	e := &Engine{
		registry:    registry,
		transport:   transport,
		concurrency: defaultConcurrency,
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DeliverToAll はペイロードを現在の全購読に配信し、集計結果を返す。
// 購読が0件の場合はトランスポートを呼ばずに空の結果を返す。
// 個々の送信失敗はエラーとして返さず、結果の失敗数に計上する。
func (e *Engine) DeliverToAll(ctx context.Context, payload []byte) Result {
	subs := e.registry.List()
	if len(subs) == 0 {
		return Result{}
	}

	batchID := uuid.New().String()
	outcomes := make([]Outcome, len(subs))

	// 各タスクは自分のスロットにだけ書き込むため、集計は全タスクの完了後に行う
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, sub := range subs {
		g.Go(func() error {
			outcomes[i] = e.deliver(ctx, batchID, sub, payload)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{ID: batchID, Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case StatusDelivered:
			result.Delivered++
		default:
			result.Failed++
		}
		if o.Evicted {
			result.Evicted++
		}
	}

	log.Printf("[Delivery] batch=%s 配信完了: success=%d, failed=%d, evicted=%d",
		batchID, result.Delivered, result.Failed, result.Evicted)

	for _, fn := range e.observers {
		fn(result)
	}
	return result
}

// deliver は1件の購読への送信を試行し、結果を返す。
// 送信はsendTimeoutで打ち切られ、ハングした送信が他の購読を止めることはない。
func (e *Engine) deliver(ctx context.Context, batchID string, sub webpush.Subscription, payload []byte) Outcome {
	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()

	err := e.send(sendCtx, sub, payload)
	if err == nil {
		e.registry.RecordSuccess(sub.Endpoint)
		if e.verbose {
			log.Printf("[Delivery] batch=%s 送信成功: endpoint=%s", batchID, sub.Endpoint)
		}
		return Outcome{Endpoint: sub.Endpoint, Status: StatusDelivered}
	}

	log.Printf("[Delivery] batch=%s 送信失敗: endpoint=%s, reason=%v", batchID, sub.Endpoint, err)
	outcome := Outcome{Endpoint: sub.Endpoint, Status: StatusFailed, Reason: err.Error()}

	if e.evictAfter > 0 && webpush.IsPermanent(err) {
		if n := e.registry.RecordFailure(sub.Endpoint); n >= e.evictAfter && e.registry.Remove(sub.Endpoint) {
			log.Printf("[Delivery] batch=%s 購読を削除: endpoint=%s, consecutive_failures=%d", batchID, sub.Endpoint, n)
			outcome.Evicted = true
		}
	}
	return outcome
}

// send はトランスポートを呼び出す。トランスポートが応答しない場合でも
// タイムアウト後に制御を返す。パニックは失敗として扱う。
func (e *Engine) send(ctx context.Context, sub webpush.Subscription, payload []byte) error {
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("トランスポートがパニック: %v", r)
			}
		}()
		errCh <- e.transport.Send(ctx, sub, payload)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return &webpush.SendError{
			Endpoint: sub.Endpoint,
			Err:      webpush.ErrTransient,
			Detail:   ctx.Err().Error(),
		}
	}
}
