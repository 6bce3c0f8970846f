// Package event はイベント一覧の取得と作成を提供する。
// ネットワーク優先・キャッシュフォールバックの解決と、
// 成功した取得結果によるキャッシュの全置換を担う。
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/tsudoi/internal/connectivity"
	"github.com/hitoshi/tsudoi/internal/draft"
	"github.com/hitoshi/tsudoi/internal/metrics"
	"github.com/hitoshi/tsudoi/internal/model"
	"github.com/hitoshi/tsudoi/internal/store"
)

// EventAPI はリモートイベントサービスへの呼び出しインターフェース。
type EventAPI interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
	CreateEvent(ctx context.Context, event *model.Event) (*model.Event, error)
}

// Repository は「現在の未来イベント一覧」の解決を担う。
// キャッシュスナップショットのライフサイクル（成功時の書き込みと
// フォールバック時の読み出し）はこのリポジトリが独占的に所有する。
type Repository struct {
	api     EventAPI
	probe   connectivity.Probe
	store   store.Store
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	// cacheMu は「最後に成功した取得が勝つ」不変条件を守るため、
	// キャッシュへの書き込みを直列化する。
	cacheMu sync.Mutex

	// now はテストで時計を差し替えるためのフック。
	now func() time.Time
}

// NewRepository はRepositoryの新しいインスタンスを生成する。
func NewRepository(api EventAPI, probe connectivity.Probe, st store.Store, collector metrics.MetricsCollector, logger *slog.Logger) *Repository {
	return &Repository{
		api:     api,
		probe:   probe,
		store:   st,
		metrics: collector,
		logger:  logger,
		now:     time.Now,
	}
}

// ListUpcoming は未来のイベント一覧を解決する。
// 接続中はリモートから取得し、過去のイベントを除外したうえで
// キャッシュを全置換してから返す。
// 切断中または接続パスでの一切の失敗（トランスポート、非成功ステータス、
// パース失敗）はキャッシュへのフォールバックとして扱い、
// キャッシュも空の場合はNO_DATA_AVAILABLEで失敗する。
func (r *Repository) ListUpcoming(ctx context.Context) ([]model.Event, error) {
	start := r.now()

	if !r.probe.IsConnected(ctx) {
		r.logger.Info("ネットワーク未接続のためキャッシュへフォールバックします")
		return r.listFromCache(ctx)
	}

	fetched, err := r.api.ListEvents(ctx)
	if err != nil {
		// 接続パスでの失敗は切断と同一に扱う
		r.logger.Warn("イベント一覧の取得に失敗したためキャッシュへフォールバックします",
			slog.String("error", err.Error()),
		)
		return r.listFromCache(ctx)
	}

	// 取得後に呼び出し元が興味を失っていれば結果を適用しない
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := r.now()
	upcoming := make([]model.Event, 0, len(fetched))
	for _, e := range fetched {
		if e.IsFuture(now) {
			upcoming = append(upcoming, e)
		}
	}

	r.writeCache(ctx, upcoming)

	r.metrics.RecordListSource(metrics.SourceNetwork)
	r.metrics.RecordListLatency(r.now().Sub(start))
	r.logger.Info("イベント一覧を取得しました",
		slog.Int("total", len(fetched)),
		slog.Int("upcoming", len(upcoming)),
	)
	return upcoming, nil
}

// Get はイベントを1件取得する。
// リモートから取得できない場合はキャッシュスナップショット内を探す。
func (r *Repository) Get(ctx context.Context, eventID string) (*model.Event, error) {
	if r.probe.IsConnected(ctx) {
		event, err := r.api.GetEvent(ctx, eventID)
		if err == nil {
			return event, nil
		}
		if model.CodeOf(err) == model.ErrCodeEventNotFound {
			return nil, err
		}
		r.logger.Warn("イベント詳細の取得に失敗したためキャッシュを探します",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}

	cached, err := r.listFromCache(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cached {
		if cached[i].ID == eventID {
			return &cached[i], nil
		}
	}
	return nil, model.NewEventNotFoundError(eventID)
}

// Create は検証済みの下書きからイベントを作成する。
// 下書きは送信時点で再検証される（作成中に時間が経過して
// 開催日時が過去になっている可能性があるため）。
func (r *Repository) Create(ctx context.Context, d *model.EventDraft) (*model.Event, error) {
	result := draft.Validate(d, r.now())
	if !result.Valid {
		return nil, model.NewValidationFailedError()
	}

	if !r.probe.IsConnected(ctx) {
		return nil, model.NewNetworkUnavailableError()
	}

	event := result.Event()
	created, err := r.api.CreateEvent(ctx, event)
	if err != nil {
		r.logger.Error("イベントの作成に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewNetworkUnavailableError()
	}

	r.logger.Info("イベントを作成しました",
		slog.String("event_id", created.ID),
	)
	return created, nil
}

// listFromCache はキャッシュスナップショットを読み出して返す。
// キャッシュが存在しない、または壊れている場合はNO_DATA_AVAILABLE。
func (r *Repository) listFromCache(ctx context.Context) ([]model.Event, error) {
	raw, ok, err := r.store.Get(ctx, store.KeyEventsCache)
	if err != nil {
		return nil, fmt.Errorf("キャッシュの読み出しに失敗しました: %w", err)
	}
	if !ok {
		r.metrics.RecordNoData()
		return nil, model.NewNoDataAvailableError()
	}

	var events []model.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		r.logger.Warn("キャッシュが壊れているため破棄します",
			slog.String("error", err.Error()),
		)
		r.metrics.RecordNoData()
		return nil, model.NewNoDataAvailableError()
	}

	r.metrics.RecordListSource(metrics.SourceCache)
	return events, nil
}

// writeCache は取得結果でキャッシュを全置換する。
// 部分書き込みやマージは行わない。書き込み失敗は致命的ではなく、
// 次回のフォールバックが1世代古くなるだけなのでログに留める。
func (r *Repository) writeCache(ctx context.Context, events []model.Event) {
	encoded, err := json.Marshal(events)
	if err != nil {
		r.logger.Warn("キャッシュのエンコードに失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if err := r.store.Set(ctx, store.KeyEventsCache, string(encoded)); err != nil {
		r.logger.Warn("キャッシュの書き込みに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
