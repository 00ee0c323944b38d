package delivery

// Status は1件の配信試行の結果。
type Status string

const (
	// StatusDelivered はプッシュサービスが配信を受け付けたことを表す。
	StatusDelivered Status = "delivered"
	// StatusFailed は配信に失敗したことを表す。
	StatusFailed Status = "failed"
)

// Outcome は1件の購読に対する配信結果。
type Outcome struct {
	// Endpoint は配信先のエンドポイント。
	Endpoint string `json:"endpoint"`
	// Status は配信結果。
	Status Status `json:"status"`
	// Reason は失敗理由。成功時は空。
	Reason string `json:"reason,omitempty"`
	// Evicted はこの失敗によって購読が削除されたかどうか。
	Evicted bool `json:"evicted,omitempty"`
}

// Result は1回のファンアウトの集計結果。
type Result struct {
	// ID はファンアウトの識別子。購読が0件の場合は空。
	ID string `json:"id,omitempty"`
	// Delivered は配信に成功した件数。
	Delivered int `json:"delivered"`
	// Failed は配信に失敗した件数。
	Failed int `json:"failed"`
	// Evicted は失敗が続いたため削除された購読の件数。
	Evicted int `json:"evicted"`
	// Outcomes は購読ごとの結果。
	Outcomes []Outcome `json:"-"`
}

// Total は配信を試行した購読の件数を返す。
func (r Result) Total() int {
	return r.Delivered + r.Failed
}
