// Package session はログインセッションのライフサイクルを管理する。
// 「現在のユーザー」はグローバル変数ではなく、このSessionオブジェクトを
// 参照渡しでリポジトリやコーディネーターに注入して使う。
// ライフサイクルはログイン時のinitとログアウト時のclearの2点のみ。
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/tsudoi/internal/model"
	"github.com/hitoshi/tsudoi/internal/store"
)

// Session は現在のログインユーザーを保持し、永続ストアと同期する。
// トークンのライフサイクルは扱わない。ユーザー識別子は
// 永続ストアから読み出した不透明な値として扱う。
type Session struct {
	store  store.Store
	logger *slog.Logger

	mu      sync.RWMutex
	current *model.User
}

// New はSessionの新しいインスタンスを生成する。
// 永続化されたセッションの復元はRestoreで明示的に行う。
func New(st store.Store, logger *slog.Logger) *Session {
	return &Session{
		store:  st,
		logger: logger,
	}
}

// Restore は永続ストアからセッションを復元する。
// セッションが保存されていない場合は何もしない（エラーではない）。
// 保存データが壊れている場合は破棄してログアウト状態にする。
func (s *Session) Restore(ctx context.Context) error {
	raw, ok, err := s.store.Get(ctx, store.KeySession)
	if err != nil {
		return fmt.Errorf("セッションの読み出しに失敗しました: %w", err)
	}
	if !ok {
		return nil
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		s.logger.Warn("保存されたセッションが壊れているため破棄します")
		return s.store.Remove(ctx, store.KeySession)
	}

	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()

	s.logger.Info("セッションを復元しました",
		slog.String("user_id", user.ID),
	)
	return nil
}

// Login はユーザーをログイン状態にし、セッションを永続化する。
func (s *Session) Login(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return model.NewAuthRequiredError()
	}

	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("セッションのエンコードに失敗しました: %w", err)
	}
	if err := s.store.Set(ctx, store.KeySession, string(encoded)); err != nil {
		return fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}

	s.mu.Lock()
	s.current = user
	s.mu.Unlock()

	s.logger.Info("ログインしました",
		slog.String("user_id", user.ID),
	)
	return nil
}

// Logout はセッションをクリアし、永続化されたセッションを削除する。
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.Remove(ctx, store.KeySession); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.logger.Info("ログアウトしました")
	return nil
}

// CurrentUser は現在のログインユーザーを返す。
// 未ログインの場合は2番目の戻り値がfalseになる。
func (s *Session) CurrentUser() (*model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	u := *s.current
	return &u, true
}

// CurrentUserID は現在のユーザーIDを返す。未ログインの場合は空文字列。
func (s *Session) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.ID
}
