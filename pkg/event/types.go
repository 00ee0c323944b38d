package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeSubscription は購読エンティティを表す。
	AggregateTypeSubscription AggregateType = "Subscription"
	// AggregateTypeBroadcast はファンアウト1回分を表す。
	AggregateTypeBroadcast AggregateType = "Broadcast"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeSubscriptionAdded は新しい購読が登録されたことを表す。
	TypeSubscriptionAdded Type = "SubscriptionAdded"
	// TypeSubscriptionRefreshed は既存のエンドポイントが再登録され鍵が更新されたことを表す。
	TypeSubscriptionRefreshed Type = "SubscriptionRefreshed"
	// TypeSubscriptionRemoved はクライアントが購読を解除したことを表す。
	TypeSubscriptionRemoved Type = "SubscriptionRemoved"
	// TypeSubscriptionEvicted は配信失敗が続いた購読が削除されたことを表す。
	TypeSubscriptionEvicted Type = "SubscriptionEvicted"

	// TypeBroadcastCompleted はファンアウトが完了したことを表す。
	TypeBroadcastCompleted Type = "BroadcastCompleted"
)

// Event は配信サーバー上で起きた出来事の不変の記録。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子（エンドポイントまたはバッチID）。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionData は購読に関するイベントのデータ。
type SubscriptionData struct {
	// Endpoint は購読のエンドポイント。
	Endpoint string `json:"endpoint"`
	// Total はイベント発生後の購読件数。
	Total int `json:"total"`
	// Reason は削除理由。削除イベント以外では空。
	Reason string `json:"reason,omitempty"`
}

// BroadcastCompletedData はBroadcastCompletedイベントのデータ。
type BroadcastCompletedData struct {
	// Trigger はファンアウトの起動元（notify / trigger / schedule）。
	Trigger string `json:"trigger"`
	// Delivered は配信に成功した件数。
	Delivered int `json:"delivered"`
	// Failed は配信に失敗した件数。
	Failed int `json:"failed"`
	// Evicted は削除された購読の件数。
	Evicted int `json:"evicted"`
}
