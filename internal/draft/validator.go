// Package draft はイベント下書きの検証を提供する。
// 検証は純粋関数であり、部分保存の状態は存在しない。
package draft

import (
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/tsudoi/internal/model"
	"github.com/hitoshi/tsudoi/internal/security"
)

// maxDescriptionLength は説明文の最大文字数。
// サーバー側では強制されないため、クライアント側で抑える。
const maxDescriptionLength = 300

// sanitizePolicy は自由入力テキストからHTMLタグをすべて除去するポリシー。
// 説明文はアプリ外のWebビューでも表示されうるため、タグは一切通さない。
var sanitizePolicy = bluemonday.StrictPolicy()

// 検証対象のフィールド名。FieldErrorsのキーとして使用する。
const (
	FieldName             = "name"
	FieldDescription      = "description"
	FieldVolunteersNeeded = "volunteersNeeded"
	FieldDateTime         = "dateTime"
	FieldPosition         = "position"
	FieldImageURL         = "imageUrl"
)

// Result は下書き検証の結果を表す。
// Validは全ルールの論理積。FieldErrorsは不正なフィールドごとの
// ユーザー向けメッセージを保持する。
type Result struct {
	Valid       bool
	FieldErrors map[string]string

	draft            *model.EventDraft
	name             string
	description      string
	volunteersNeeded int
}

// Event は検証を通過した下書きからイベントを構築する。
// 名前と説明はサニタイズ済みの値が使われる。
// Validでない結果に対して呼び出した場合はnilを返す。
func (r *Result) Event() *model.Event {
	if !r.Valid {
		return nil
	}
	return &model.Event{
		Name:             r.name,
		Description:      r.description,
		OrganizerID:      r.draft.OrganizerID,
		DateTime:         r.draft.DateTime,
		ImageURL:         r.draft.ImageURL,
		Position:         r.draft.Position,
		VolunteersNeeded: r.volunteersNeeded,
		VolunteersIDs:    []string{},
	}
}

// Validate は下書きを検証する。
// 開催日時はnowに対して再検証する。日時の選択時ではなく送信時の
// 時刻で判定するのは、入力開始から保存までに時間が経過するため。
func Validate(d *model.EventDraft, now time.Time) *Result {
	result := &Result{
		FieldErrors: make(map[string]string),
		draft:       d,
	}

	result.name = strings.TrimSpace(sanitizePolicy.Sanitize(d.Name))
	if result.name == "" {
		result.FieldErrors[FieldName] = "イベント名を入力してください。"
	}

	result.description = strings.TrimSpace(sanitizePolicy.Sanitize(d.Description))
	if len([]rune(result.description)) > maxDescriptionLength {
		result.FieldErrors[FieldDescription] = "説明は300文字以内で入力してください。"
	}

	n, err := parsePositiveInt(d.VolunteersNeeded)
	if err != nil {
		result.FieldErrors[FieldVolunteersNeeded] = "募集人数は1以上の整数で入力してください。"
	} else {
		result.volunteersNeeded = n
	}

	if d.DateTime.IsZero() {
		result.FieldErrors[FieldDateTime] = "開催日時を選択してください。"
	} else if d.DateTime.Before(now) {
		result.FieldErrors[FieldDateTime] = "開催日時に過去の日時は指定できません。"
	}

	if d.Position == nil {
		result.FieldErrors[FieldPosition] = "開催場所を選択してください。"
	}

	if d.ImageURL == "" {
		result.FieldErrors[FieldImageURL] = "イベント画像をアップロードしてください。"
	} else if err := security.ValidateImageURL(d.ImageURL); err != nil {
		result.FieldErrors[FieldImageURL] = "画像URLが不正です。画像をアップロードし直してください。"
	}

	result.Valid = len(result.FieldErrors) == 0
	return result
}

// parsePositiveInt は文字列を正の整数としてパースする。
// 数値でない・ゼロ・負数・小数はすべてエラー。
func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
