// Package volunteer はボランティア参加状態の導出と登録遷移を提供する。
package volunteer

import (
	"context"
	"log/slog"

	"github.com/hitoshi/tsudoi/internal/metrics"
	"github.com/hitoshi/tsudoi/internal/model"
)

// State はイベント×ユーザーの組に対する表示状態を表す。
// 優先順位: Volunteered（満員かどうかに関わらず）→ Full → Open。
// 3状態のうちちょうど1つだけが適用される。
type State string

const (
	// StateVolunteered はユーザーが登録済みであることを表す。
	StateVolunteered State = "volunteered"
	// StateFull は満員（かつユーザー未登録）であることを表す。
	StateFull State = "full"
	// StateOpen は募集中であることを表す。
	StateOpen State = "open"
)

// Participation は参加状態と「k of needed」の実数を保持する。
type Participation struct {
	State  State
	Count  int // 現在の登録人数
	Needed int // 目標人数
}

// Derive はイベントとユーザーIDから参加状態を導出する。
// 純粋関数であり副作用を持たない。
func Derive(event *model.Event, userID string) Participation {
	p := Participation{
		Count:  len(event.VolunteersIDs),
		Needed: event.VolunteersNeeded,
	}
	switch {
	case userID != "" && event.HasVolunteer(userID):
		p.State = StateVolunteered
	case event.IsFull():
		p.State = StateFull
	default:
		p.State = StateOpen
	}
	return p
}

// VolunteerPatcher はボランティアID一覧の部分更新インターフェース。
type VolunteerPatcher interface {
	UpdateVolunteers(ctx context.Context, eventID string, volunteersIDs []string) (*model.Event, error)
}

// Coordinator はボランティア登録の楽観的更新を担う。
// 競合検出は行わない。2つのクライアントが同じイベントに同時登録した場合、
// サーバー上ではlast-write-winsとなり、ローカルの見え方は次回の
// 全件リロードまでずれたままになりうる（既知の弱い整合性）。
type Coordinator struct {
	api     VolunteerPatcher
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewCoordinator はCoordinatorの新しいインスタンスを生成する。
func NewCoordinator(api VolunteerPatcher, collector metrics.MetricsCollector, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		api:     api,
		metrics: collector,
		logger:  logger,
	}
}

// Volunteer はuserIDをイベントのボランティアに登録する。
// 登録済みまたは満員の場合は何もせず元のイベントを返す
// （エラーではない。二度押しに対して冪等）。
// 変更フィールドのみの部分更新をリモートへ発行し、成功時は同じ変更を
// ローカルのコピーへ適用して返す（サーバーからの再読込はしない）。
// 失敗時は渡されたイベントを変更せずSIGNUP_FAILEDを返す。
func (c *Coordinator) Volunteer(ctx context.Context, event *model.Event, userID string) (*model.Event, error) {
	if userID == "" {
		return nil, model.NewAuthRequiredError()
	}

	if event.HasVolunteer(userID) || event.IsFull() {
		c.metrics.RecordSignup(metrics.ResultNoop)
		return event, nil
	}

	// 既存の順序を保ったまま末尾に追加する。
	// 前提条件により重複は構造的に起こらない。
	updatedIDs := make([]string, 0, len(event.VolunteersIDs)+1)
	updatedIDs = append(updatedIDs, event.VolunteersIDs...)
	updatedIDs = append(updatedIDs, userID)

	if _, err := c.api.UpdateVolunteers(ctx, event.ID, updatedIDs); err != nil {
		c.metrics.RecordSignup(metrics.ResultFailure)
		c.logger.Error("ボランティア登録の送信に失敗しました",
			slog.String("event_id", event.ID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewSignupFailedError(err.Error())
	}

	updated := *event
	updated.VolunteersIDs = updatedIDs

	c.metrics.RecordSignup(metrics.ResultSuccess)
	c.logger.Info("ボランティア登録が完了しました",
		slog.String("event_id", event.ID),
		slog.String("user_id", userID),
		slog.Int("count", len(updatedIDs)),
	)
	return &updated, nil
}
