package main

import "testing"

// TestRun は起動できない設定でrunが終了コードを返すことを検証する。
// t.Setenvを使うため並列実行しない。
func TestRun(t *testing.T) {
	t.Run("VAPID鍵が無い場合は1を返すこと", func(t *testing.T) {
		t.Setenv("VAPID_PUBLIC_KEY", "")
		t.Setenv("VAPID_PRIVATE_KEY", "")

		if got := run(); got != 1 {
			t.Errorf("run() = %d, want 1", got)
		}
	})

	t.Run("設定値が不正な場合は1を返すこと", func(t *testing.T) {
		t.Setenv("SEND_TIMEOUT", "ten seconds")

		if got := run(); got != 1 {
			t.Errorf("run() = %d, want 1", got)
		}
	})
}
