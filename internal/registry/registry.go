// Package registry はWeb Push購読情報のインメモリレジストリを提供する。
//
// 購読はエンドポイントをキーに保持され、同じ端末の再購読は鍵を置き換えるだけで
// 重複した配信先を作らない。プロセスの再起動をまたいだ永続化は行わない。
package registry

import (
	"sync"

	"github.com/nao1215/pushhub/pkg/webpush"
)

// entry はレジストリ内の1件の購読と、その連続失敗回数。
type entry struct {
	// sub は保存された購読情報。
	sub webpush.Subscription
	// failures は恒久的な送信失敗の連続回数。成功でリセットされる。
	failures int
}

// Registry は購読情報を保持するスレッドセーフなコレクション。
// ロックはメモリ上の操作の間だけ保持し、ネットワークI/Oをまたがない。
type Registry struct {
	mu sync.RWMutex
	// order は初回登録順のエンドポイント一覧。
	order []string
	// entries はエンドポイントから購読へのインデックス。
	entries map[string]*entry
}

// New は空のレジストリを生成する。
func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Add は購読を登録する。既に同じエンドポイントがある場合は鍵を置き換え、
// 登録順と失敗カウンタはそのまま残す。新規登録ならtrueを返す。
func (r *Registry) Add(sub webpush.Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[sub.Endpoint]; ok {
		e.sub = sub
		return false
	}
	r.entries[sub.Endpoint] = &entry{sub: sub}
	r.order = append(r.order, sub.Endpoint)
	return true
}

// List は現在の購読のスナップショットを登録順で返す。
// 返されたスライスは呼び出し側が自由に使ってよい。
func (r *Registry) List() []webpush.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]webpush.Subscription, 0, len(r.order))
	for _, endpoint := range r.order {
		subs = append(subs, r.entries[endpoint].sub)
	}
	return subs
}

// Count は登録されている購読の件数を返す。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Remove は指定エンドポイントの購読を削除する。削除できた場合はtrueを返す。
func (r *Registry) Remove(endpoint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[endpoint]; !ok {
		return false
	}
	delete(r.entries, endpoint)
	for i, e := range r.order {
		if e == endpoint {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// RecordFailure は恒久的な送信失敗を記録し、連続失敗回数を返す。
// 既に削除された購読の場合は0を返す。
func (r *Registry) RecordFailure(endpoint string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[endpoint]
	if !ok {
		return 0
	}
	e.failures++
	return e.failures
}

// RecordSuccess は送信成功を記録し、連続失敗回数をリセットする。
func (r *Registry) RecordSuccess(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[endpoint]; ok {
		e.failures = 0
	}
}
