// Package app はコアの全依存関係をワイヤリングする。
// UI層はここで構築したCoreを介してデータ・状態レイヤーを呼び出す。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/tsudoi/internal/api"
	"github.com/hitoshi/tsudoi/internal/config"
	"github.com/hitoshi/tsudoi/internal/connectivity"
	"github.com/hitoshi/tsudoi/internal/event"
	"github.com/hitoshi/tsudoi/internal/image"
	"github.com/hitoshi/tsudoi/internal/logger"
	"github.com/hitoshi/tsudoi/internal/metrics"
	"github.com/hitoshi/tsudoi/internal/security"
	"github.com/hitoshi/tsudoi/internal/session"
	"github.com/hitoshi/tsudoi/internal/store"
	"github.com/hitoshi/tsudoi/internal/user"
	"github.com/hitoshi/tsudoi/internal/volunteer"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// DeviceDeps は端末プラットフォーム側が提供する協調オブジェクト。
// 権限ダイアログ・画像ピッカー・ストレージ読み出しはUI層の持ち物であり、
// コアはインターフェース越しにのみ触る。
type DeviceDeps struct {
	Permissions image.Permissions
	Picker      image.Picker
	Blobs       image.BlobReader

	// Store・Probe・Uploader はテストや特殊環境向けの差し替え用。
	// nilの場合はファイルストア・HTTP疎通確認・設定で選択した
	// アップローダーが使われる。
	Store    store.Store
	Probe    connectivity.Probe
	Uploader image.Uploader
}

// Core はデータ・状態レイヤーの全コンポーネントを束ねる。
type Core struct {
	Config     *config.Config
	Session    *session.Session
	Events     *event.Repository
	Volunteers *volunteer.Coordinator
	Organizers *user.Service
	Images     *image.Pipeline

	// MetricsHandler は開発ビルドでスクレイプ用に公開するハンドラー。
	MetricsHandler http.Handler
}

// New は全依存関係を構築してCoreを返す。
// 永続化済みのセッションがあれば復元する。
func New(ctx context.Context, cfg *config.Config, dev DeviceDeps) (*Core, error) {
	if dev.Permissions == nil || dev.Picker == nil || dev.Blobs == nil {
		return nil, fmt.Errorf("device collaborators (permissions, picker, blobs) are required")
	}

	log := slog.Default()

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. 永続ストア
	st := dev.Store
	if st == nil {
		fileStore, err := store.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		st = fileStore
	}

	// 3. リモートイベントサービスクライアント
	// レートはreq/min指定なのでreq/secへ変換する
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.APIRateLimit)/60.0), cfg.APIRateBurst)
	apiClient := api.NewClient(
		cfg.APIBaseURL,
		&http.Client{Timeout: cfg.APITimeout},
		log,
		limiter,
	)

	// 4. 疎通確認
	probe := dev.Probe
	if probe == nil {
		probe = connectivity.NewHTTPProbe(
			cfg.ProbeURL,
			security.NewSafeClient(cfg.ProbeTimeout),
			log,
			cfg.ProbeTimeout,
		)
	}

	// 5. セッションの復元
	sess := session.New(st, log)
	if err := sess.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	// 6. 画像アップローダーの選択
	uploader := dev.Uploader
	switch {
	case uploader != nil:
	case cfg.ImageUploader == config.UploaderCloudinary:
		cld, err := image.NewCloudinaryUploader(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			return nil, fmt.Errorf("failed to init cloudinary: %w", err)
		}
		uploader = cld
	default:
		uploader = image.NewImageHostUploader(
			cfg.ImageHostURL,
			cfg.ImageHostAPIKey,
			security.NewSafeClient(cfg.UploadTimeout),
			log,
		)
	}

	// 7. コアコンポーネント
	core := &Core{
		Config:         cfg,
		Session:        sess,
		Events:         event.NewRepository(apiClient, probe, st, collector, log),
		Volunteers:     volunteer.NewCoordinator(apiClient, collector, log),
		Organizers:     user.NewService(apiClient, log),
		Images:         image.NewPipeline(dev.Permissions, dev.Picker, dev.Blobs, uploader, collector, log),
		MetricsHandler: metrics.Handler(registry),
	}

	log.Info("core initialized",
		slog.String("api_base_url", cfg.APIBaseURL),
		slog.String("uploader", string(cfg.ImageUploader)),
		slog.Bool("session_restored", sess.CurrentUserID() != ""),
	)
	return core, nil
}
