package pushserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pushhub/internal/history"
	"github.com/nao1215/pushhub/pkg/event"
	"github.com/nao1215/pushhub/pkg/middleware"
	"github.com/nao1215/pushhub/pkg/webpush"
)

// noSubscriptionsText は購読が無い状態で /trigger が呼ばれた場合の応答。
const noSubscriptionsText = "No subscriptions found. Please subscribe first from the app."

// errNotJSONObject は /notify のボディがJSONオブジェクトでない場合のエラー。
var errNotJSONObject = errors.New("ペイロードはJSONオブジェクトである必要があります")

// maxNotifyBody は /notify が読み込むリクエストボディの上限。
// 整形後のペイロードはさらに webpush.MaxPayloadSize 以下である必要がある。
const maxNotifyBody = 64 << 10

var (
	// defaultNotifyMessage は /notify のボディが空の場合のペイロード。
	defaultNotifyMessage = webpush.Message{
		Title: "Push Test",
		Body:  "Hello from server!",
	}
	// triggerMessage は /trigger が送るデモペイロード。
	triggerMessage = webpush.Message{
		Title: "Manual Trigger",
		Body:  "This notification was sent from the server!",
		Icon:  "/favicon.ico",
		Badge: "/favicon.ico",
	}
)

// subscribeKeysRequest は購読リクエストに含まれる暗号化鍵のJSON構造。
type subscribeKeysRequest struct {
	// P256dh はクライアントのECDH公開鍵。
	P256dh string `json:"p256dh" binding:"required"`
	// Auth は認証シークレット。
	Auth string `json:"auth" binding:"required"`
}

// subscribeRequest はPushSubscription.toJSON()形式の購読リクエストのJSON構造。
type subscribeRequest struct {
	// Endpoint はプッシュサービス上の配信先URL。
	Endpoint string `json:"endpoint" binding:"required,url"`
	// ExpirationTime は購読の有効期限（UNIXミリ秒）。
	ExpirationTime *int64 `json:"expirationTime"`
	// Keys はペイロード暗号化用の鍵。
	Keys subscribeKeysRequest `json:"keys"`
}

// subscription はリクエストをレジストリに保存する購読に変換する。
func (r subscribeRequest) subscription() webpush.Subscription {
	return webpush.Subscription{
		Endpoint:       r.Endpoint,
		ExpirationTime: r.ExpirationTime,
		Keys:           webpush.Keys{P256dh: r.Keys.P256dh, Auth: r.Keys.Auth},
	}
}

// unsubscribeRequest は購読解除リクエストのJSON構造。購読データ全体を送ってもよい。
type unsubscribeRequest struct {
	// Endpoint は解除する購読のエンドポイント。
	Endpoint string `json:"endpoint" binding:"required"`
}

// handleSubscribe は購読の登録を処理するハンドラを返す。
func (s *Server) handleSubscribe() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("購読データが不正です: %v", err)})
			return
		}
		sub := req.subscription()

		added := s.registry.Add(sub)
		total := s.registry.Count()

		eventType := event.TypeSubscriptionAdded
		if added {
			log.Printf("[Subscribe] 新しい購読を登録: endpoint=%s, total=%d", sub.Endpoint, total)
		} else {
			eventType = event.TypeSubscriptionRefreshed
			log.Printf("[Subscribe] 既存の購読を更新: endpoint=%s, total=%d", sub.Endpoint, total)
		}
		s.record(c.Request.Context(), sub.Endpoint, event.AggregateTypeSubscription, eventType,
			event.SubscriptionData{Endpoint: sub.Endpoint, Total: total})

		c.JSON(http.StatusCreated, gin.H{"message": "Subscribed successfully"})
	}
}

// handleUnsubscribe は購読の解除を処理するハンドラを返す。
func (s *Server) handleUnsubscribe() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req unsubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		removed := s.registry.Remove(req.Endpoint)
		if !removed {
			c.JSON(http.StatusOK, gin.H{"message": "Subscription not found", "removed": false})
			return
		}

		total := s.registry.Count()
		log.Printf("[Subscribe] 購読を解除: endpoint=%s, total=%d", req.Endpoint, total)
		s.record(c.Request.Context(), req.Endpoint, event.AggregateTypeSubscription, event.TypeSubscriptionRemoved,
			event.SubscriptionData{Endpoint: req.Endpoint, Total: total, Reason: "unsubscribed"})

		c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed successfully", "removed": true})
	}
}

// handleNotify は任意ペイロードのファンアウトを処理するハンドラを返す。
// ボディが空の場合はデフォルトのメッセージを送る。
func (s *Server) handleNotify() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := notifyPayload(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if sender := middleware.GetSender(c); sender != "" {
			log.Printf("[Notify] 送信者=%s, subscriptions=%d", sender, s.registry.Count())
		}

		result := s.broadcast(c.Request.Context(), "notify", payload)

		resp := gin.H{
			"message": "Notifications sent",
			"success": result.Delivered,
			"failed":  result.Failed,
		}
		if s.cfg.Verbose {
			resp["id"] = result.ID
			resp["evicted"] = result.Evicted
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleTrigger はデモペイロードのファンアウトを処理するハンドラを返す。
func (s *Server) handleTrigger() gin.HandlerFunc {
	return func(c *gin.Context) {
		count := s.registry.Count()
		log.Printf("[Trigger] 手動トリガー: subscriptions=%d", count)
		if count == 0 {
			c.String(http.StatusOK, noSubscriptionsText)
			return
		}

		payload, err := triggerMessage.Encode()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		result := s.broadcast(c.Request.Context(), "trigger", payload)
		c.String(http.StatusOK, "Sent to %d subscribers. Failed: %d", result.Delivered, result.Failed)
	}
}

// handleStatus は購読件数の取得を処理するハンドラを返す。
func (s *Server) handleStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		count := s.registry.Count()
		message := "No subscriptions yet"
		if count > 0 {
			message = fmt.Sprintf("%d active subscription(s)", count)
		}

		resp := gin.H{"subscriptions": count, "message": message}
		if s.cfg.TLSEnabled() {
			resp["secure"] = true
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleVAPIDPublicKey はアプリケーションサーバーキーを返すハンドラを返す。
func (s *Server) handleVAPIDPublicKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"publicKey": s.cfg.VAPIDPublicKey})
	}
}

// handleListEvents はイベント履歴の取得を処理するハンドラを返す。
// クエリパラメータ: limit（件数）、type（イベントタイプ）
func (s *Server) handleListEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := history.DefaultLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit は正の整数で指定してください"})
				return
			}
			limit = n
		}

		if s.history == nil {
			c.JSON(http.StatusOK, gin.H{"events": []*event.Event{}})
			return
		}

		var (
			events []*event.Event
			err    error
		)
		if t := c.Query("type"); t != "" {
			events, err = s.history.ListByType(c.Request.Context(), event.Type(t), limit)
		} else {
			events, err = s.history.List(c.Request.Context(), limit)
		}
		if err != nil {
			log.Printf("[History] イベント取得に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

// notifyPayload はリクエストボディから送信するペイロードを組み立てる。
// 空のボディはデフォルトメッセージ、それ以外はJSONオブジェクトである必要がある。
func notifyPayload(body io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxNotifyBody+1))
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの読み込みに失敗: %w", err)
	}
	if len(raw) > maxNotifyBody {
		return nil, fmt.Errorf("%w（上限 %d バイト）", webpush.ErrPayloadTooLarge, webpush.MaxPayloadSize)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return defaultNotifyMessage.Encode()
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, errNotJSONObject
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("ペイロードの整形に失敗: %w", err)
	}
	if buf.Len() > webpush.MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d バイト（上限 %d バイト）", webpush.ErrPayloadTooLarge, buf.Len(), webpush.MaxPayloadSize)
	}
	return buf.Bytes(), nil
}
