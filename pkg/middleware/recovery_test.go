package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// TestRecovery はRecoveryミドルウェアを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	panicValues := []struct {
		name  string
		value any
	}{
		{name: "文字列", value: "配信ハンドラでパニック"},
		{name: "整数", value: 42},
		{name: "error型", value: http.ErrAbortHandler},
	}

	for _, pv := range panicValues {
		t.Run(pv.name+"のパニック値で500が返ること", func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(Recovery())
			router.POST("/notify", func(_ *gin.Context) {
				panic(pv.value)
			})

			req := httptest.NewRequest(http.MethodPost, "/notify", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusInternalServerError {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
			}

			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if body["error"] != "内部サーバーエラーが発生しました" {
				t.Errorf("error = %q, want %q", body["error"], "内部サーバーエラーが発生しました")
			}
		})
	}

	t.Run("応答の書き込み後のパニックではステータスが上書きされないこと", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery())
		router.GET("/trigger", func(c *gin.Context) {
			c.String(http.StatusOK, "Sent to %d subscribers. Failed: %d", 1, 0)
			panic("集計の書き込み後にパニック")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trigger", nil))

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Body.String(); got != "Sent to 1 subscribers. Failed: 0" {
			t.Errorf("ボディ = %q, エラーJSONが追記されるべきではない", got)
		}
	})

	t.Run("認証済みの送信者がいてもパニックから回復できること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery())
		router.Use(JWTAuth("secret"))
		router.POST("/notify", func(_ *gin.Context) {
			panic("送信中にパニック")
		})

		token, err := GenerateJWT("secret", "ops", time.Minute)
		if err != nil {
			t.Fatalf("GenerateJWT()でエラーが発生: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/notify", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})

	t.Run("パニック後もサーバーが次のリクエストを処理できること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery())
		router.GET("/trigger", func(_ *gin.Context) {
			panic("トリガー中にパニック")
		})
		router.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"subscriptions": 0})
		})

		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/trigger", nil))
		if w1.Code != http.StatusInternalServerError {
			t.Errorf("1回目のステータスコード = %d, want %d", w1.Code, http.StatusInternalServerError)
		}

		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/status", nil))
		if w2.Code != http.StatusOK {
			t.Errorf("2回目のステータスコード = %d, want %d", w2.Code, http.StatusOK)
		}
	})
}
