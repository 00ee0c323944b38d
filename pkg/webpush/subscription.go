package webpush

// Keys は購読に紐づくペイロード暗号化用の鍵ペア。
type Keys struct {
	// P256dh はクライアントのECDH公開鍵（base64url）。
	P256dh string `json:"p256dh"`
	// Auth は認証シークレット（base64url）。
	Auth string `json:"auth"`
}

// Subscription はPushManager.subscribe()が返す購読情報。
// 保存後は不変の値として扱い、中身はトランスポートにそのまま渡す。
type Subscription struct {
	// Endpoint はプッシュサービス上の配信先URL。
	Endpoint string `json:"endpoint"`
	// ExpirationTime は購読の有効期限（UNIXミリ秒）。ブラウザは通常nullを返す。
	ExpirationTime *int64 `json:"expirationTime,omitempty"`
	// Keys はペイロード暗号化用の鍵。
	Keys Keys `json:"keys"`
}
