package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/nao1215/pushhub/pkg/webpush"
)

// newSub はテスト用の購読情報を生成するヘルパー関数。
func newSub(n int) webpush.Subscription {
	return webpush.Subscription{
		Endpoint: fmt.Sprintf("https://push.example.com/send/%d", n),
		Keys:     webpush.Keys{P256dh: fmt.Sprintf("p256dh-%d", n), Auth: fmt.Sprintf("auth-%d", n)},
	}
}

// TestAddAndList はAddとListの基本動作を検証する。
func TestAddAndList(t *testing.T) {
	t.Parallel()

	t.Run("空のレジストリは空のスナップショットを返す", func(t *testing.T) {
		t.Parallel()

		r := New()
		if got := r.List(); len(got) != 0 {
			t.Errorf("len(List()) = %d, want 0", len(got))
		}
		if got := r.Count(); got != 0 {
			t.Errorf("Count() = %d, want 0", got)
		}
	})

	t.Run("N件のAdd後にListがN件を登録順で返す", func(t *testing.T) {
		t.Parallel()

		r := New()
		const n = 25
		for i := range n {
			if !r.Add(newSub(i)) {
				t.Fatalf("Add(%d) = false, want true", i)
			}
		}

		got := r.List()
		if len(got) != n {
			t.Fatalf("len(List()) = %d, want %d", len(got), n)
		}
		for i, sub := range got {
			if sub.Endpoint != newSub(i).Endpoint {
				t.Errorf("List()[%d].Endpoint = %q, want %q", i, sub.Endpoint, newSub(i).Endpoint)
			}
		}
		if r.Count() != n {
			t.Errorf("Count() = %d, want %d", r.Count(), n)
		}
	})

	t.Run("同じエンドポイントの再登録は鍵を置き換え件数を増やさない", func(t *testing.T) {
		t.Parallel()

		r := New()
		r.Add(newSub(1))
		r.Add(newSub(2))

		refreshed := newSub(1)
		refreshed.Keys.Auth = "rotated"
		if r.Add(refreshed) {
			t.Error("再登録でAdd() = true, want false")
		}

		got := r.List()
		if len(got) != 2 {
			t.Fatalf("len(List()) = %d, want 2", len(got))
		}
		if got[0].Endpoint != refreshed.Endpoint {
			t.Errorf("登録順が変わっている: %q", got[0].Endpoint)
		}
		if got[0].Keys.Auth != "rotated" {
			t.Errorf("Keys.Auth = %q, want rotated", got[0].Keys.Auth)
		}
	})

	t.Run("Listの結果を書き換えてもレジストリに影響しない", func(t *testing.T) {
		t.Parallel()

		r := New()
		r.Add(newSub(1))

		snapshot := r.List()
		snapshot[0].Endpoint = "changed"

		if got := r.List()[0].Endpoint; got != newSub(1).Endpoint {
			t.Errorf("Endpoint = %q, want %q", got, newSub(1).Endpoint)
		}
	})
}

// TestRemove は購読の削除を検証する。
func TestRemove(t *testing.T) {
	t.Parallel()

	r := New()
	for i := range 3 {
		r.Add(newSub(i))
	}

	if !r.Remove(newSub(1).Endpoint) {
		t.Fatal("Remove() = false, want true")
	}
	if r.Remove(newSub(1).Endpoint) {
		t.Error("2回目のRemove() = true, want false")
	}

	got := r.List()
	if len(got) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(got))
	}
	if got[0].Endpoint != newSub(0).Endpoint || got[1].Endpoint != newSub(2).Endpoint {
		t.Errorf("削除後の順序が不正: %q, %q", got[0].Endpoint, got[1].Endpoint)
	}
}

// TestFailureCounter は連続失敗カウンタを検証する。
func TestFailureCounter(t *testing.T) {
	t.Parallel()

	t.Run("失敗で増加し成功でリセットされる", func(t *testing.T) {
		t.Parallel()

		r := New()
		endpoint := newSub(1).Endpoint
		r.Add(newSub(1))

		if got := r.RecordFailure(endpoint); got != 1 {
			t.Errorf("RecordFailure() = %d, want 1", got)
		}
		if got := r.RecordFailure(endpoint); got != 2 {
			t.Errorf("RecordFailure() = %d, want 2", got)
		}
		r.RecordSuccess(endpoint)
		if got := r.RecordFailure(endpoint); got != 1 {
			t.Errorf("リセット後のRecordFailure() = %d, want 1", got)
		}
	})

	t.Run("再登録では失敗回数がリセットされない", func(t *testing.T) {
		t.Parallel()

		r := New()
		endpoint := newSub(1).Endpoint
		r.Add(newSub(1))
		r.RecordFailure(endpoint)
		r.Add(newSub(1))

		if got := r.RecordFailure(endpoint); got != 2 {
			t.Errorf("RecordFailure() = %d, want 2", got)
		}
	})

	t.Run("未登録のエンドポイントは0を返す", func(t *testing.T) {
		t.Parallel()

		r := New()
		if got := r.RecordFailure("https://unknown.example.com"); got != 0 {
			t.Errorf("RecordFailure() = %d, want 0", got)
		}
		r.RecordSuccess("https://unknown.example.com")
	})
}

// TestConcurrentAdd は並行したAddとListでレジストリが壊れないことを検証する。
func TestConcurrentAdd(t *testing.T) {
	t.Parallel()

	r := New()
	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				r.Add(newSub(w*perWriter + i))
			}
		}()
	}

	// 書き込み中のスナップショットは途中状態でも破損していないこと
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			for _, sub := range r.List() {
				if sub.Endpoint == "" || sub.Keys.Auth == "" {
					t.Errorf("不完全な購読を観測: %+v", sub)
					return
				}
			}
		}
	}()

	wg.Wait()
	<-done

	got := r.List()
	if len(got) != writers*perWriter {
		t.Fatalf("len(List()) = %d, want %d", len(got), writers*perWriter)
	}
	seen := make(map[string]int, len(got))
	for _, sub := range got {
		seen[sub.Endpoint]++
	}
	for endpoint, n := range seen {
		if n != 1 {
			t.Errorf("%s が %d 回登録されている", endpoint, n)
		}
	}
}
