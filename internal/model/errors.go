// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// AppError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// I/O失敗はすべて操作の境界でこの型に変換され、
// 生のトランスポートエラーがプレゼンテーション層へ漏れることはない。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: network, auth, validation, image, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNetworkUnavailable = "NETWORK_UNAVAILABLE"
	ErrCodeNoDataAvailable    = "NO_DATA_AVAILABLE"
	ErrCodeAuthRequired       = "AUTH_REQUIRED"
	ErrCodeSignupFailed       = "SIGNUP_FAILED"
	ErrCodePermissionDenied   = "PERMISSION_DENIED"
	ErrCodeEncodingFailed     = "ENCODING_FAILED"
	ErrCodeUploadFailed       = "UPLOAD_FAILED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeEventNotFound      = "EVENT_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// CodeOf はerrからAppErrorのエラーコードを取り出す。
// AppErrorでない場合は空文字列を返す。
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// NewNetworkUnavailableError はネットワーク未接続エラーを生成する。
// 回復可能であり、呼び出し元はキャッシュへのフォールバックを試みる。
func NewNetworkUnavailableError() *AppError {
	return &AppError{
		Code:     ErrCodeNetworkUnavailable,
		Message:  "ネットワークに接続できません。",
		Category: "network",
		Action:   "通信環境を確認してから再度お試しください。",
	}
}

// NewNoDataAvailableError はデータ未取得エラーを生成する。
// ネットワーク取得もキャッシュ読み出しも失敗した場合の終端状態で、
// 空・オフライン表示として扱われ自動リトライはされない。
func NewNoDataAvailableError() *AppError {
	return &AppError{
		Code:     ErrCodeNoDataAvailable,
		Message:  "表示できるイベントがありません。",
		Category: "network",
		Action:   "オンラインになってから画面を再読み込みしてください。",
	}
}

// NewAuthRequiredError は未認証エラーを生成する。
func NewAuthRequiredError() *AppError {
	return &AppError{
		Code:     ErrCodeAuthRequired,
		Message:  "この操作にはログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewSignupFailedError はボランティア登録失敗エラーを生成する。
// ローカル状態は変更されず、ユーザーは再試行できる。
func NewSignupFailedError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeSignupFailed,
		Message:  fmt.Sprintf("ボランティア登録に失敗しました: %s", reason),
		Category: "network",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewPermissionDeniedError はカメラ・フォトライブラリ権限拒否エラーを生成する。
func NewPermissionDeniedError() *AppError {
	return &AppError{
		Code:     ErrCodePermissionDenied,
		Message:  "カメラまたはフォトライブラリへのアクセスが許可されていません。",
		Category: "image",
		Action:   "端末の設定からアプリに権限を付与してください。",
	}
}

// NewEncodingFailedError は画像エンコード失敗エラーを生成する。
func NewEncodingFailedError() *AppError {
	return &AppError{
		Code:     ErrCodeEncodingFailed,
		Message:  "画像データの読み込みに失敗しました。",
		Category: "image",
		Action:   "別の画像を選択して再度お試しください。",
	}
}

// NewUploadFailedError は画像アップロード失敗エラーを生成する。
func NewUploadFailedError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeUploadFailed,
		Message:  fmt.Sprintf("画像のアップロードに失敗しました: %s", reason),
		Category: "image",
		Action:   "通信環境を確認してから再度お試しください。",
	}
}

// NewValidationFailedError は下書き検証失敗エラーを生成する。
// フィールド単位のエラーはEventDraftValidatorの結果側が保持する。
func NewValidationFailedError() *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各項目のエラー表示を確認して修正してください。",
	}
}

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *AppError {
	return &AppError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "network",
		Action:   "イベント一覧を再読み込みしてください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID string) *AppError {
	return &AppError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
