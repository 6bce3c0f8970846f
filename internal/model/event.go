// Package model はドメインモデルを定義する。
package model

import "time"

// Position はイベント開催地点の座標を表す。
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Event は地域イベントを表す。
// IDはサーバー側で採番される。VolunteersIDsは順序付きだが、
// 意味を持つのは順序ではなくメンバーシップであり、重複は許されない。
type Event struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	OrganizerID      string    `json:"organizerId"`
	DateTime         time.Time `json:"dateTime"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	Position         *Position `json:"position"`
	VolunteersNeeded int       `json:"volunteersNeeded"`
	VolunteersIDs    []string  `json:"volunteersIds"`
}

// IsFuture はイベントが現在時刻nowに対して未来（dateTime >= now）かを判定する。
func (e *Event) IsFuture(now time.Time) bool {
	return !e.DateTime.Before(now)
}

// HasVolunteer はuserIDがボランティアとして登録済みかを判定する。
func (e *Event) HasVolunteer(userID string) bool {
	for _, id := range e.VolunteersIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsFull はボランティア数が目標人数に達しているかを判定する。
// 「満員」は導出された述語であり、サーバー側で強制される上限ではない。
func (e *Event) IsFull() bool {
	return len(e.VolunteersIDs) >= e.VolunteersNeeded
}

// EventDraft は作成前のイベント下書きを表す。
// 検証を通過して送信が成功するまで永続化されない。
// VolunteersNeededはフォーム層から文字列のまま渡され、検証時にパースされる。
type EventDraft struct {
	Name             string
	Description      string
	OrganizerID      string
	DateTime         time.Time
	ImageURL         string
	Position         *Position
	VolunteersNeeded string
}

// ImageResource はアップロード済み画像のリソース記述子を表す。
// 下書きの編集中にのみ存在し、イベント作成後または下書き破棄時に捨てられる。
type ImageResource struct {
	ID       string  // ローカル識別子（アップロード単位で採番）
	URI      string  // 端末上のローカルURI（プレビュー用）
	URL      string  // アップロード後のリモートURL（正となる参照）
	FileName string
	SizeKB   float64
}
