package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// notifyRequest はテスト用の通知ペイロード。
type notifyRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// notifyResponse はテスト用の通知結果。
type notifyResponse struct {
	Message string `json:"message"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("末尾のスラッシュが取り除かれること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:3000/")
		if client.baseURL != "http://localhost:3000" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:3000")
		}
	})

	t.Run("デフォルトのタイムアウトが30秒であること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:3000")
		if client.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s", client.httpClient.Timeout)
		}
	})

	t.Run("WithTimeoutでタイムアウトを変更できること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:3000", WithTimeout(5*time.Second))
		if client.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", client.httpClient.Timeout)
		}
	})
}

// TestPostJSON はPostJSONメソッドを検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("JSONボディとBearerトークンを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var gotAuth, gotContentType string
		var gotBody notifyRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotContentType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"Notifications sent","success":2,"failed":1}`))
		}))
		defer server.Close()

		client := New(server.URL, WithToken("secret-token"))
		var resp notifyResponse
		err := client.PostJSON(context.Background(), "/notify", notifyRequest{Title: "T", Body: "B"}, &resp)
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		if gotAuth != "Bearer secret-token" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret-token")
		}
		if gotContentType != "application/json" {
			t.Errorf("Content-Type = %q, want %q", gotContentType, "application/json")
		}
		if gotBody.Title != "T" || gotBody.Body != "B" {
			t.Errorf("body = %+v", gotBody)
		}
		if resp.Success != 2 || resp.Failed != 1 {
			t.Errorf("resp = %+v, want success=2 failed=1", resp)
		}
	})

	t.Run("bodyがnilの場合は空ボディで送信されること", func(t *testing.T) {
		t.Parallel()

		var gotLen int
		var gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			gotLen = len(data)
			gotContentType = r.Header.Get("Content-Type")
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		if err := New(server.URL).PostJSON(context.Background(), "/notify", nil, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if gotLen != 0 {
			t.Errorf("body length = %d, want 0", gotLen)
		}
		if gotContentType != "" {
			t.Errorf("Content-Type = %q, want empty", gotContentType)
		}
	})

	t.Run("トークン未設定の場合Authorizationヘッダーが付与されないこと", func(t *testing.T) {
		t.Parallel()

		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		if err := New(server.URL).PostJSON(context.Background(), "/notify", nil, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if gotAuth != "" {
			t.Errorf("Authorization = %q, want empty", gotAuth)
		}
	})

	t.Run("シリアライズできないボディでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		err := New("http://127.0.0.1:1").PostJSON(context.Background(), "/notify", make(chan int), nil)
		if err == nil {
			t.Fatal("エラーが返されるべき")
		}
	})

	t.Run("キャンセルされたコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := New(server.URL).PostJSON(ctx, "/notify", nil, nil); err == nil {
			t.Fatal("エラーが返されるべき")
		}
	})
}

// TestGetJSON はGetJSONメソッドを検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("レスポンスをデシリアライズできること", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/status" {
				t.Errorf("request = %s %s", r.Method, r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"subscriptions":3,"message":"3 active subscription(s)"}`))
		}))
		defer server.Close()

		var status struct {
			Subscriptions int    `json:"subscriptions"`
			Message       string `json:"message"`
		}
		if err := New(server.URL).GetJSON(context.Background(), "/status", &status); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if status.Subscriptions != 3 {
			t.Errorf("subscriptions = %d, want 3", status.Subscriptions)
		}
	})

	t.Run("不正なJSONレスポンスでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		var v map[string]any
		if err := New(server.URL).GetJSON(context.Background(), "/status", &v); err == nil {
			t.Fatal("エラーが返されるべき")
		}
	})

	t.Run("401レスポンスでStatusErrorが返ること", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"トークンが無効です"}` + "\n"))
		}))
		defer server.Close()

		err := New(server.URL).GetJSON(context.Background(), "/status", nil)
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("StatusErrorが返されるべき: %v", err)
		}
		if statusErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusUnauthorized)
		}
		if statusErr.Body != `{"error":"トークンが無効です"}` {
			t.Errorf("Body = %q", statusErr.Body)
		}
	})

	t.Run("接続できないサーバーに対してエラーが返ること", func(t *testing.T) {
		t.Parallel()

		client := New("http://127.0.0.1:1", WithTimeout(time.Second))
		if err := client.GetJSON(context.Background(), "/status", nil); err == nil {
			t.Fatal("エラーが返されるべき")
		}
	})
}

// TestGetText はGetTextメソッドを検証する。
func TestGetText(t *testing.T) {
	t.Parallel()

	t.Run("テキストレスポンスをそのまま返すこと", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("Sent to 2 subscribers. Failed: 0"))
		}))
		defer server.Close()

		got, err := New(server.URL).GetText(context.Background(), "/trigger")
		if err != nil {
			t.Fatalf("GetText()でエラーが発生: %v", err)
		}
		if got != "Sent to 2 subscribers. Failed: 0" {
			t.Errorf("GetText() = %q", got)
		}
	})
}
