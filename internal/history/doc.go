// Package history はpushserver上の出来事（購読の追加・削除、ファンアウト完了）を記録する。
//
// SQLite（modernc.org/sqlite）に pkg/event のイベントを追記する。
// 購読そのものは保存しない。デフォルトはインメモリDBのため再起動で消える。
package history
