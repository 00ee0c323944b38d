// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 送信者トークンの検証、パニックリカバリ、CORS設定を含む。
// 購読はブラウザ上の任意のオリジンから登録されるため、CORSは
// ワイルドカード指定にも対応する。
package middleware
