package webpush

import (
	"fmt"

	wp "github.com/SherClockHolmes/webpush-go"
)

// VAPIDKeys は送信者を識別するVAPID鍵ペア（base64url）。
type VAPIDKeys struct {
	// PublicKey はクライアントがapplicationServerKeyとして使う公開鍵。
	PublicKey string `json:"publicKey"`
	// PrivateKey はJWT署名に使う秘密鍵。外部に公開してはならない。
	PrivateKey string `json:"-"`
}

// GenerateVAPIDKeys は新しいVAPID鍵ペアを生成する。
func GenerateVAPIDKeys() (VAPIDKeys, error) {
	privateKey, publicKey, err := wp.GenerateVAPIDKeys()
	if err != nil {
		return VAPIDKeys{}, fmt.Errorf("VAPID鍵の生成に失敗: %w", err)
	}
	return VAPIDKeys{PublicKey: publicKey, PrivateKey: privateKey}, nil
}
