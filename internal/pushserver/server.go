package pushserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pushhub/internal/delivery"
	"github.com/nao1215/pushhub/internal/history"
	"github.com/nao1215/pushhub/internal/registry"
	"github.com/nao1215/pushhub/pkg/event"
	"github.com/nao1215/pushhub/pkg/middleware"
	"github.com/nao1215/pushhub/pkg/webpush"
)

// shutdownTimeout は停止時に処理中のリクエストを待つ上限。
const shutdownTimeout = 10 * time.Second

// Server はWeb Push配信サーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg Config
	// registry は購読を保持するレジストリ。
	registry *registry.Registry
	// engine はファンアウトを行う配信エンジン。
	engine *delivery.Engine
	// history はイベント履歴。nilの場合は記録しない。
	history *history.Store
}

// New は設定からVAPID送信者とイベント履歴を構築してサーバーを生成する。
func New(ctx context.Context, cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sender, err := webpush.NewSender(webpush.Options{
		Subscriber: cfg.VAPIDSubject,
		VAPID: webpush.VAPIDKeys{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
		},
		TTL:     cfg.PushTTL,
		Timeout: cfg.AttemptTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("送信者の初期化に失敗: %w", err)
	}

	store, err := history.Open(ctx, cfg.HistoryDSN)
	if err != nil {
		return nil, fmt.Errorf("イベント履歴の初期化に失敗: %w", err)
	}

	transport := webpush.WithRetry(sender, webpush.RetryPolicy{
		Attempts:       cfg.RetryAttempts,
		Delay:          cfg.RetryDelay,
		AttemptTimeout: cfg.AttemptTimeout(),
	})
	return NewServer(cfg, transport, store), nil
}

// NewServer は指定したトランスポートで配信するサーバーを生成する。
// storeがnilの場合はイベント履歴を記録しない。
func NewServer(cfg Config, transport webpush.Transport, store *history.Store) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	s := &Server{
		router:   router,
		cfg:      cfg,
		registry: registry.New(),
		history:  store,
	}
	s.engine = delivery.NewEngine(s.registry, transport,
		delivery.WithConcurrency(cfg.Concurrency),
		delivery.WithSendTimeout(cfg.SendTimeout),
		delivery.WithEvictAfter(cfg.EvictAfter),
		delivery.WithVerbose(cfg.Verbose),
		delivery.WithObserver(s.recordEvictions),
	)
	s.setupRoutes()

	return s
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はctxがキャンセルされるまでサーバーを起動する。
// TLSが設定されている場合はHTTPSで待ち受ける。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheme := "http"
	if s.cfg.TLSEnabled() {
		scheme = "https"
	}
	s.logAccessURLs(scheme)

	if s.cfg.TriggerInterval > 0 {
		go s.runScheduler(ctx, s.cfg.TriggerInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		if s.cfg.TLSEnabled() {
			errCh <- srv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	log.Println("[Server] シャットダウンを開始します")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	return nil
}

// Close はイベント履歴を閉じる。
func (s *Server) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 購読の登録・解除
	s.router.POST("/subscribe", s.handleSubscribe())
	s.router.DELETE("/subscribe", s.handleUnsubscribe())

	// ファンアウト。シークレットが設定されている場合のみトークンを要求する
	send := s.router.Group("")
	if s.cfg.NotifyJWTSecret != "" {
		send.Use(middleware.JWTAuth(s.cfg.NotifyJWTSecret))
	}
	{
		send.POST("/notify", s.handleNotify())
		send.GET("/trigger", s.handleTrigger())
	}

	s.router.GET("/status", s.handleStatus())
	s.router.GET("/vapid-public-key", s.handleVAPIDPublicKey())
	s.router.GET("/events", s.handleListEvents())

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "pushhub"})
	})
}

// broadcast はペイロードを全購読に配信し、完了イベントを記録する。
// リクエストが中断されても配信は最後まで実行する。
func (s *Server) broadcast(ctx context.Context, trigger string, payload []byte) delivery.Result {
	ctx = context.WithoutCancel(ctx)
	result := s.engine.DeliverToAll(ctx, payload)
	if result.ID != "" {
		s.record(ctx, result.ID, event.AggregateTypeBroadcast, event.TypeBroadcastCompleted,
			event.BroadcastCompletedData{
				Trigger:   trigger,
				Delivered: result.Delivered,
				Failed:    result.Failed,
				Evicted:   result.Evicted,
			})
	}
	return result
}

// recordEvictions は配信エンジンが削除した購読をイベントとして記録する。
func (s *Server) recordEvictions(result delivery.Result) {
	for _, o := range result.Outcomes {
		if !o.Evicted {
			continue
		}
		s.record(context.Background(), o.Endpoint, event.AggregateTypeSubscription, event.TypeSubscriptionEvicted,
			event.SubscriptionData{Endpoint: o.Endpoint, Total: s.registry.Count(), Reason: o.Reason})
	}
}

// record はイベントを履歴に追記する。失敗はログに出すのみで呼び出し元には返さない。
func (s *Server) record(ctx context.Context, aggregateID string, aggregateType event.AggregateType, eventType event.Type, data any) {
	if s.history == nil {
		return
	}
	e, err := event.New(aggregateID, aggregateType, eventType, data)
	if err != nil {
		log.Printf("[History] イベント生成に失敗: type=%s, error=%v", eventType, err)
		return
	}
	if err := s.history.Append(ctx, e); err != nil {
		log.Printf("[History] イベント記録に失敗: type=%s, error=%v", eventType, err)
	}
}
