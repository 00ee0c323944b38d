package webpush

import "context"

// Transport は1件の購読に対してペイロードを配信する。
// 実装はペイロードの暗号化と送信者認証を担い、失敗時はIsPermanentで
// 分類可能なエラーを返す。
type Transport interface {
	Send(ctx context.Context, sub Subscription, payload []byte) error
}

// TransportFunc は関数をTransportとして扱うためのアダプタ。
type TransportFunc func(ctx context.Context, sub Subscription, payload []byte) error

// Send はTransportインターフェースを満たす。
func (f TransportFunc) Send(ctx context.Context, sub Subscription, payload []byte) error {
	return f(ctx, sub, payload)
}
