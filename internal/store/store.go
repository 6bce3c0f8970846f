// Package store は端末上の永続キー値ストアを提供する。
// イベント一覧のキャッシュとログインセッションの2つのキーで使用される。
// コアはStoreインターフェースにのみ依存し、実装は注入される。
package store

import "context"

// 予約済みキー。
const (
	// KeyEventsCache は直近の成功した取得結果のスナップショットを保持するキー。
	KeyEventsCache = "events_cache"
	// KeySession はログインセッション（JSONブロブ）を保持するキー。
	KeySession = "user_session"
)

// Store は文字列キーの非同期get/set/removeストアのインターフェース。
type Store interface {
	// Get はキーに対応する値を返す。
	// キーが存在しない場合は2番目の戻り値がfalseになる（エラーではない）。
	Get(ctx context.Context, key string) (string, bool, error)

	// Set はキーに値を書き込む。既存の値は完全に上書きされる。
	Set(ctx context.Context, key, value string) error

	// Remove は指定されたキーをすべて削除する。
	// 存在しないキーの削除はエラーにならない。
	Remove(ctx context.Context, keys ...string) error
}
