// Package user は主催者プロフィールの取得を提供する。
package user

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/tsudoi/internal/model"
)

// UserAPI はユーザープロフィールの取得インターフェース。
type UserAPI interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// Service は主催者プロフィールのサービス層。
// 同一画面内で同じ主催者を何度も引くため、取得済みプロフィールを
// プロセス内にメモ化する。メモはプロセス生存期間のみ有効。
type Service struct {
	api    UserAPI
	logger *slog.Logger

	mu   sync.RWMutex
	memo map[string]*model.User
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(api UserAPI, logger *slog.Logger) *Service {
	return &Service{
		api:    api,
		logger: logger,
		memo:   make(map[string]*model.User),
	}
}

// Organizer は主催者プロフィールを取得する。
func (s *Service) Organizer(ctx context.Context, organizerID string) (*model.User, error) {
	if organizerID == "" {
		return nil, model.NewUserNotFoundError(organizerID)
	}

	s.mu.RLock()
	cached, ok := s.memo[organizerID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	fetched, err := s.api.GetUser(ctx, organizerID)
	if err != nil {
		s.logger.Warn("主催者プロフィールの取得に失敗しました",
			slog.String("organizer_id", organizerID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.mu.Lock()
	s.memo[organizerID] = fetched
	s.mu.Unlock()

	return fetched, nil
}
