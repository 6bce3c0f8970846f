// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"strings"
)

// PersonName はユーザー名の動的な形を表すタグ付きバリアント。
// リモートAPIは name を単一文字列 "Taro Yamada" または
// 構造化ペア {"firstname": "Taro", "lastname": "Yamada"} のどちらでも返すため、
// どちらの形で受信したかをKindで保持する。
type PersonName struct {
	Kind  NameKind
	Full  string // Kind == NameKindSingle のとき有効
	First string // Kind == NameKindStructured のとき有効
	Last  string // Kind == NameKindStructured のとき有効
}

// NameKind はPersonNameの形を表す。
type NameKind int

const (
	// NameKindNone は名前が未設定であることを表す。
	NameKindNone NameKind = iota
	// NameKindSingle は単一文字列の名前を表す。
	NameKindSingle
	// NameKindStructured はfirst/lastの構造化ペアを表す。
	NameKindStructured
)

// UnmarshalJSON は文字列・構造化ペアのどちらの形でもPersonNameを復元する。
func (n *PersonName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*n = PersonName{}
			return nil
		}
		*n = PersonName{Kind: NameKindSingle, Full: s}
		return nil
	}

	var pair struct {
		First string `json:"firstname"`
		Last  string `json:"lastname"`
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if pair.First == "" && pair.Last == "" {
		*n = PersonName{}
		return nil
	}
	*n = PersonName{Kind: NameKindStructured, First: pair.First, Last: pair.Last}
	return nil
}

// MarshalJSON は受信時の形を保ってシリアライズする。
func (n PersonName) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case NameKindSingle:
		return json.Marshal(n.Full)
	case NameKindStructured:
		return json.Marshal(struct {
			First string `json:"firstname"`
			Last  string `json:"lastname"`
		}{n.First, n.Last})
	default:
		return []byte("null"), nil
	}
}

// String は表示用の名前文字列を返す。未設定の場合は空文字列。
func (n PersonName) String() string {
	switch n.Kind {
	case NameKindSingle:
		return n.Full
	case NameKindStructured:
		return strings.TrimSpace(n.First + " " + n.Last)
	default:
		return ""
	}
}

// User はイベント主催者を含むサービス利用ユーザーを表す。
type User struct {
	ID     string     `json:"id"`
	Email  string     `json:"email"`
	Mobile string     `json:"mobile,omitempty"`
	Name   PersonName `json:"name,omitzero"`
}

// DisplayName は表示名を解決する。
// 解決順序: name → email → "Unknown"。
func (u *User) DisplayName() string {
	if s := u.Name.String(); s != "" {
		return s
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown"
}

// NormalizedMobile は電話番号から数字と先頭の+以外の文字を取り除いて返す。
// 入力の書式は緩く、ハイフン・空白・括弧などが混在しうる。
func (u *User) NormalizedMobile() string {
	var b strings.Builder
	for i, r := range u.Mobile {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
