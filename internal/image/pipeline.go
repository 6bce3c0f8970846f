// Package image は選択・撮影された写真をアップロード済みリソースへ変換する
// 取り込みパイプラインを提供する。
// ステージ: 権限取得 → 画像取得 → メタデータ抽出 → base64エンコード → アップロード。
// ステージ3〜5は1アセットに対して逐次実行される。データモデル上
// イベント1件につき画像は最大1枚であり、並行アップロードは扱わない。
package image

import (
	"context"
	"encoding/base64"
	"log/slog"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tsudoi/internal/metrics"
	"github.com/hitoshi/tsudoi/internal/model"
)

// defaultFileName はアセット名からもURIからもファイル名を導出できない
// 場合の表示名。
const defaultFileName = "photo.jpg"

// Asset は取得された1枚の画像アセットを表す。
// Base64には取得時点で添付されたインラインコンテンツが入ることがあり、
// data-URIスキームのプレフィックスを含む場合がある。
type Asset struct {
	FileName  string
	URI       string
	Base64    string
	SizeBytes int64 // 不明な場合は0
}

// Permissions はカメラとフォトライブラリの権限取得インターフェース。
// どちらかが拒否された場合はPERMISSION_DENIEDを返す。
type Permissions interface {
	Request(ctx context.Context) error
}

// Picker は画像アセットの取得（ライブラリ選択または撮影）インターフェース。
// ユーザーによるキャンセルは (nil, nil) で表す（エラーではない）。
type Picker interface {
	Pick(ctx context.Context) (*Asset, error)
}

// BlobReader はストレージ上のアセットのバイト列読み出しインターフェース。
type BlobReader interface {
	Read(ctx context.Context, uri string) ([]byte, error)
}

// Uploader はエンコード済みペイロードの外部ホストへの送信インターフェース。
// 成功時はリモートURLを返す。
type Uploader interface {
	Upload(ctx context.Context, payload, fileName string) (string, error)
}

// Pipeline は画像取り込みの各ステージを順に実行する。
// 生成されたImageResourceは下書きに渡されるまでパイプラインが所有する。
type Pipeline struct {
	perms    Permissions
	picker   Picker
	blobs    BlobReader
	uploader Uploader
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewPipeline はPipelineの新しいインスタンスを生成する。
func NewPipeline(perms Permissions, picker Picker, blobs BlobReader, uploader Uploader, collector metrics.MetricsCollector, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		perms:    perms,
		picker:   picker,
		blobs:    blobs,
		uploader: uploader,
		metrics:  collector,
		logger:   logger,
	}
}

// Ingest は1枚の画像を取り込み、アップロード済みリソース記述子を返す。
// ユーザーが選択をキャンセルした場合は (nil, nil) を返す。
// 権限拒否・エンコード失敗・アップロード失敗はそれぞれの
// エラー種別で中断し、下書きの画像は未設定のまま残る。
func (p *Pipeline) Ingest(ctx context.Context) (*model.ImageResource, error) {
	// ステージ1: 権限取得。拒否された場合は取得を試みる前に中断する。
	if err := p.perms.Request(ctx); err != nil {
		p.logger.Warn("画像の権限取得が拒否されました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewPermissionDeniedError()
	}

	// ステージ2: 画像取得。キャンセルは静かに何もしない。
	asset, err := p.picker.Pick(ctx)
	if err != nil {
		return nil, model.NewEncodingFailedError()
	}
	if asset == nil {
		p.logger.Debug("画像の選択がキャンセルされました")
		return nil, nil
	}

	// ステージ3: メタデータ抽出。
	fileName := resolveFileName(asset)
	sizeBytes := asset.SizeBytes

	// ステージ4: base64エンコード。インラインコンテンツを優先し、
	// なければストレージからバイト列を読み出してエンコードする。
	payload := stripDataURIPrefix(asset.Base64)
	if payload == "" {
		raw, err := p.blobs.Read(ctx, asset.URI)
		if err != nil || len(raw) == 0 {
			p.metrics.RecordUpload(metrics.ResultFailure)
			p.logger.Error("画像データを読み出せませんでした",
				slog.String("uri", asset.URI),
			)
			return nil, model.NewEncodingFailedError()
		}
		payload = base64.StdEncoding.EncodeToString(raw)
		if sizeBytes == 0 {
			sizeBytes = int64(len(raw))
		}
	}

	// ステージ5: アップロード。
	start := time.Now()
	remoteURL, err := p.uploader.Upload(ctx, payload, fileName)
	if err != nil {
		p.metrics.RecordUpload(metrics.ResultFailure)
		p.logger.Error("画像のアップロードに失敗しました",
			slog.String("file_name", fileName),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUploadFailedError(err.Error())
	}
	if remoteURL == "" {
		p.metrics.RecordUpload(metrics.ResultFailure)
		return nil, model.NewUploadFailedError("応答にURLが含まれていません")
	}

	p.metrics.RecordUpload(metrics.ResultSuccess)
	p.metrics.RecordUploadLatency(time.Since(start))
	p.logger.Info("画像をアップロードしました",
		slog.String("file_name", fileName),
		slog.String("url", remoteURL),
	)

	return &model.ImageResource{
		ID:       uuid.NewString(),
		URI:      asset.URI,
		URL:      remoteURL,
		FileName: fileName,
		SizeKB:   roundKB(sizeBytes),
	}, nil
}

// resolveFileName は表示用ファイル名を導出する。
// アセット自身の名前 → ストレージURIの最終パスセグメント → 既定名の順。
func resolveFileName(asset *Asset) string {
	if asset.FileName != "" {
		return asset.FileName
	}
	uri := asset.URI
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	if base := path.Base(uri); base != "" && base != "." && base != "/" {
		return base
	}
	return defaultFileName
}

// stripDataURIPrefix は先頭のdata-URIスキームを最初のカンマまで除去する。
func stripDataURIPrefix(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

// roundKB はバイト数をキロバイトへ変換し小数2桁へ丸める。
// サイズ不明（0）の場合は0を返す。
func roundKB(sizeBytes int64) float64 {
	if sizeBytes == 0 {
		return 0
	}
	return math.Round(float64(sizeBytes)/1024*100) / 100
}
