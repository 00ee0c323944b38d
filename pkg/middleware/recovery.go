package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery はハンドラのパニックを500応答に変換するGinミドルウェアを返す。
// ログにはJWTの送信者とクライアントIPを含める。
// 応答を書き込んだ後のパニックではステータスを上書きせず、処理の中断だけを行う。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			sender := GetSender(c)
			if sender == "" {
				sender = "-"
			}
			log.Printf("[PANIC] %s %s sender=%s client=%s: %v\n%s",
				c.Request.Method, c.Request.URL.Path, sender, c.ClientIP(), r, debug.Stack())

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "内部サーバーエラーが発生しました",
			})
		}()
		c.Next()
	}
}
