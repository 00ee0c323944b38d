// Package delivery はレジストリ上の全購読へメッセージを配信するファンアウトエンジンを提供する。
//
// 配信はベストエフォートかつ高々1回で、購読ごとに独立して試行される。
// 1件の失敗がバッチ全体を中断することはなく、結果は成功数と失敗数に集計される。
// 恒久的な失敗が閾値回数続いた購読はレジストリから削除される。
package delivery
