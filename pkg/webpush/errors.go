package webpush

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCredentials は送信者の認証情報（VAPID鍵や連絡先）が未設定であることを表す。
	ErrMissingCredentials = errors.New("送信者の認証情報が設定されていません")
	// ErrSubscriptionGone はプッシュサービスが購読の失効を返したことを表す（404/410）。
	ErrSubscriptionGone = errors.New("購読が失効しています")
	// ErrRejected はプッシュサービスがリクエストを恒久的に拒否したことを表す。
	ErrRejected = errors.New("プッシュサービスがリクエストを拒否しました")
	// ErrTransient は時間をおけば成功しうる一時的な失敗を表す。
	ErrTransient = errors.New("一時的な送信エラー")
	// ErrPayloadTooLarge はペイロードが暗号化できる上限を超えていることを表す。
	// 購読ではなくメッセージ側の問題のため、恒久的な失敗には数えない。
	ErrPayloadTooLarge = errors.New("ペイロードが大きすぎます")
	// ErrLocal はリクエストを送信する前に送信側で失敗したことを表す（VAPID署名など）。
	// 購読ではなく送信側の問題のため、恒久的な失敗には数えない。
	ErrLocal = errors.New("送信側の処理に失敗しました")
)

// SendError は1件の購読への送信失敗を表す。
type SendError struct {
	// Endpoint は送信先のエンドポイント。
	Endpoint string
	// StatusCode はプッシュサービスが返したHTTPステータス。通信エラー時は0。
	StatusCode int
	// Err は失敗の分類（ErrSubscriptionGone / ErrRejected / ErrTransient / ErrPayloadTooLarge / ErrLocal）。
	Err error
	// Detail はレスポンスボディや下位エラーの内容。
	Detail string
}

func (e *SendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%v: status=%d", e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%v: status=%d, body=%s", e.Err, e.StatusCode, e.Detail)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsPermanent はエラーが購読の恒久的な無効を示すかどうかを返す。
// 恒久的な失敗はリトライせず、繰り返し発生した購読は削除対象になる。
func IsPermanent(err error) bool {
	return errors.Is(err, ErrSubscriptionGone) || errors.Is(err, ErrRejected)
}

// classifyStatus はプッシュサービスのHTTPステータスを失敗の分類に変換する。
// 成功ステータスの場合はnilを返す。
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound, code == http.StatusGone:
		return ErrSubscriptionGone
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return ErrTransient
	case code == http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	default:
		return ErrRejected
	}
}
