// Package api はリモートイベントサービスのHTTP JSONクライアントを提供する。
// コアはプロトコルのクライアントであり、サーバー側の設計は持たない。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/tsudoi/internal/model"
)

// maxResponseSize はレスポンスボディの読み込み上限（5MB)。
const maxResponseSize = 5 << 20

// Client はリモートイベントサービスのクライアント。
// 全呼び出しはクライアント側レートリミッターを通過してから実行される
// （リフレッシュの連打でAPIを叩きすぎないための自衛）。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// limiterがnilの場合はレート制限なしで動作する。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, limiter *rate.Limiter) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		limiter:    limiter,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ListEvents は全イベントの一覧を取得する。
// GET /events
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := c.do(ctx, http.MethodGet, "/events", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent はイベントを1件取得する。
// GET /events/{id}
func (c *Client) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	var event model.Event
	err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID), nil, &event)
	if err != nil {
		if isNotFound(err) {
			return nil, model.NewEventNotFoundError(eventID)
		}
		return nil, err
	}
	return &event, nil
}

// CreateEvent はイベントを新規作成する。IDはサーバー側で採番される。
// POST /events
func (c *Client) CreateEvent(ctx context.Context, event *model.Event) (*model.Event, error) {
	// idはサーバー採番のため送信しない
	body := struct {
		Name             string          `json:"name"`
		Description      string          `json:"description"`
		OrganizerID      string          `json:"organizerId"`
		DateTime         string          `json:"dateTime"`
		ImageURL         string          `json:"imageUrl,omitempty"`
		Position         *model.Position `json:"position"`
		VolunteersNeeded int             `json:"volunteersNeeded"`
		VolunteersIDs    []string        `json:"volunteersIds"`
	}{
		Name:             event.Name,
		Description:      event.Description,
		OrganizerID:      event.OrganizerID,
		DateTime:         event.DateTime.UTC().Format("2006-01-02T15:04:05.000Z"),
		ImageURL:         event.ImageURL,
		Position:         event.Position,
		VolunteersNeeded: event.VolunteersNeeded,
		VolunteersIDs:    event.VolunteersIDs,
	}
	if body.VolunteersIDs == nil {
		body.VolunteersIDs = []string{}
	}

	var created model.Event
	if err := c.do(ctx, http.MethodPost, "/events", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateVolunteers はイベントのボランティアID一覧のみを部分更新する。
// PATCH /events/{id} に変更フィールドだけを載せる。
func (c *Client) UpdateVolunteers(ctx context.Context, eventID string, volunteersIDs []string) (*model.Event, error) {
	body := struct {
		VolunteersIDs []string `json:"volunteersIds"`
	}{volunteersIDs}

	var updated model.Event
	err := c.do(ctx, http.MethodPatch, "/events/"+url.PathEscape(eventID), body, &updated)
	if err != nil {
		if isNotFound(err) {
			return nil, model.NewEventNotFoundError(eventID)
		}
		return nil, err
	}
	return &updated, nil
}

// GetUser はユーザープロフィールを取得する。
// GET /users/{id}
func (c *Client) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &user)
	if err != nil {
		if isNotFound(err) {
			return nil, model.NewUserNotFoundError(userID)
		}
		return nil, err
	}
	return &user, nil
}

// statusError は非成功ステータスのHTTPレスポンスを表す。
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.status)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

// do はリクエストを組み立てて実行し、成功時はoutへJSONデコードする。
// レートリミッターの待機、リクエストID付与、ステータス検証を一括して行う。
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("レート制限の待機が中断されました: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("リモートイベントサービスの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// エラーボディは読み捨ててコネクションを再利用可能にする
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		c.logger.Warn("リモートイベントサービスが非成功ステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return &statusError{status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("レスポンスの読み込みに失敗しました: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("レスポンスのパースに失敗しました: %w", err)
	}
	return nil
}
