package webpush

import (
	"encoding/json"
	"fmt"
)

// Message はService Workerが表示する通知のペイロード。
// 配信エンジンにとってはエンコード済みのバイト列でしかない。
type Message struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Icon は通知アイコンのURL。
	Icon string `json:"icon,omitempty"`
	// Badge はバッジ画像のURL。
	Badge string `json:"badge,omitempty"`
	// Tag は同じタグの通知を置き換えるための重複排除キー。
	Tag string `json:"tag,omitempty"`
	// RequireInteraction はユーザーが閉じるまで通知を表示し続けるかどうか。
	RequireInteraction bool `json:"requireInteraction,omitempty"`
	// Data はService Workerに渡す任意のデータ。
	Data map[string]any `json:"data,omitempty"`
}

// Encode はメッセージをService Workerが読むJSONに変換する。
func (m Message) Encode() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("通知ペイロードのシリアライズに失敗: %w", err)
	}
	return b, nil
}
