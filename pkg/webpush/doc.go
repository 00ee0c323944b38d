// Package webpush はWeb Pushプロトコルのレコード型と送信トランスポートを提供する。
//
// ブラウザのPushManagerが返す購読情報（エンドポイントと暗号鍵）を表す型、
// 通知ペイロード、VAPID鍵で送信者を認証してペイロードを暗号化・送信する
// Senderを含む。送信失敗は恒久的なもの（購読の失効）と一時的なもの
// （ネットワーク障害やプッシュサービスの過負荷）に分類される。
package webpush
