package webpush

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
)

// HTTPClient はプッシュサービスへのリクエスト送信に使うクライアント。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options はSenderの設定。
type Options struct {
	// Subscriber はVAPIDのsubクレームに入れる連絡先（メールアドレスまたはhttps URL）。
	Subscriber string
	// VAPID は送信者を認証する鍵ペア。
	VAPID VAPIDKeys
	// TTL はプッシュサービスがメッセージを保持する秒数。
	TTL int
	// Urgency はメッセージの緊急度（very-low / low / normal / high）。
	Urgency string
	// Timeout は1回の送信リクエストのタイムアウト。HTTPClient指定時は無視される。
	Timeout time.Duration
	// HTTPClient は送信に使うクライアント。nilの場合はTimeout付きのhttp.Clientを使う。
	HTTPClient HTTPClient
}

// Sender はVAPIDで認証してWeb Pushメッセージを送信するTransport。
type Sender struct {
	// opts は検証済みの送信設定。
	opts Options
	// client は送信に使うHTTPクライアント。
	client HTTPClient
}

var _ Transport = (*Sender)(nil)

// MaxPayloadSize はaes128gcmの1レコード（4096バイト）に暗号化できるペイロードの上限。
// レコードからタグ16バイト、ヘッダー86バイト（salt・レコード長・鍵長・公開鍵）、
// 区切り1バイトを除いた値。
const MaxPayloadSize = 4096 - 16 - 86 - 1

// maxErrorBody はエラー詳細として読み取るレスポンスボディの上限。
const maxErrorBody = 512

// NewSender は新しいSenderを生成する。
// 送信者の認証情報が欠けている場合はErrMissingCredentialsを返す。
func NewSender(opts Options) (*Sender, error) {
	if opts.VAPID.PublicKey == "" || opts.VAPID.PrivateKey == "" {
		return nil, fmt.Errorf("%w: VAPID鍵ペアが必要です", ErrMissingCredentials)
	}
	if opts.Subscriber == "" {
		return nil, fmt.Errorf("%w: VAPIDのsubscriber（連絡先）が必要です", ErrMissingCredentials)
	}
	if opts.TTL <= 0 {
		opts.TTL = 60
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Sender{opts: opts, client: client}, nil
}

// Send はペイロードを購読の鍵で暗号化し、エンドポイントに送信する。
// 上限を超えるペイロードと不正な鍵はプッシュサービスに送らずにエラーを返す。
func (s *Sender) Send(ctx context.Context, sub Subscription, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return &SendError{
			Endpoint: sub.Endpoint,
			Err:      ErrPayloadTooLarge,
			Detail:   fmt.Sprintf("%d バイト（上限 %d バイト）", len(payload), MaxPayloadSize),
		}
	}
	if err := checkKeys(sub.Keys); err != nil {
		return &SendError{Endpoint: sub.Endpoint, Err: ErrRejected, Detail: err.Error()}
	}

	target := &wp.Subscription{
		Endpoint: sub.Endpoint,
		Keys: wp.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	resp, err := wp.SendNotificationWithContext(ctx, payload, target, &wp.Options{
		HTTPClient:      s.client,
		Subscriber:      strings.TrimPrefix(s.opts.Subscriber, "mailto:"),
		TTL:             s.opts.TTL,
		Urgency:         wp.Urgency(s.opts.Urgency),
		VAPIDPublicKey:  s.opts.VAPID.PublicKey,
		VAPIDPrivateKey: s.opts.VAPID.PrivateKey,
	})
	if err != nil {
		return &SendError{
			Endpoint: sub.Endpoint,
			Err:      classifyError(ctx, err),
			Detail:   err.Error(),
		}
	}
	defer resp.Body.Close()

	kind := classifyStatus(resp.StatusCode)
	if kind == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &SendError{
		Endpoint:   sub.Endpoint,
		StatusCode: resp.StatusCode,
		Err:        kind,
		Detail:     strings.TrimSpace(string(body)),
	}
}

// classifyError はリクエスト送信前後のエラーを分類する。
// 通信エラーとタイムアウトは一時的とみなす。鍵はcheckKeysで検証済みのため、
// それ以外は送信側の問題として扱い、購読の失効には数えない。
func classifyError(ctx context.Context, err error) error {
	if errors.Is(err, wp.ErrMaxPadExceeded) {
		return ErrPayloadTooLarge
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrTransient
	}
	return ErrLocal
}

// checkKeys は購読の鍵がペイロードの暗号化に使える形式かを検証する。
func checkKeys(keys Keys) error {
	p256dh, err := decodeKey(keys.P256dh)
	if err != nil {
		return fmt.Errorf("p256dhをデコードできません: %w", err)
	}
	if _, err := ecdh.P256().NewPublicKey(p256dh); err != nil {
		return fmt.Errorf("p256dhがP-256の公開鍵ではありません: %w", err)
	}
	auth, err := decodeKey(keys.Auth)
	if err != nil {
		return fmt.Errorf("authをデコードできません: %w", err)
	}
	if len(auth) == 0 {
		return errors.New("authが空です")
	}
	return nil
}

// decodeKey はパディングの有無を問わずbase64（標準またはURLセーフ）をデコードする。
func decodeKey(key string) ([]byte, error) {
	if rem := len(key) % 4; rem != 0 {
		key += strings.Repeat("=", 4-rem)
	}
	if b, err := base64.StdEncoding.DecodeString(key); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(key)
}
