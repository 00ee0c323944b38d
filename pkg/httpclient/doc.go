// Package httpclient はpushserverのAPIを呼び出すHTTPクライアントを提供する。
//
// pushctlからの通知送信、手動トリガー、状態取得に使用する。
// 送信者トークンが設定されている場合はBearerトークンとして付与する。
package httpclient
