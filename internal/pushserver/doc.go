// Package pushserver はWeb Pushの購読受付とファンアウト配信を行うHTTPサーバーを提供する。
//
// 購読はプロセス内のレジストリにのみ保持され、再起動で失われる。
// 配信のトリガーは POST /notify、GET /trigger、および任意の定期実行の3つ。
//
// エンドポイント:
//   - POST   /subscribe         購読の登録（同一エンドポイントは上書き）
//   - DELETE /subscribe         購読の解除
//   - POST   /notify            任意ペイロードのファンアウト
//   - GET    /trigger           デモペイロードのファンアウト（テキスト応答）
//   - GET    /status            購読件数
//   - GET    /vapid-public-key  アプリケーションサーバーキー
//   - GET    /events            イベント履歴
//   - GET    /health            ヘルスチェック
package pushserver
