// Package connectivity はネットワーク到達性の確認を提供する。
package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Probe は呼び出し時点のネットワーク到達性を真偽値で報告するインターフェース。
// 継続的なストリームではなく、操作の直前に1回だけ問い合わせる用途を想定する。
type Probe interface {
	IsConnected(ctx context.Context) bool
}

// HTTPProbe は対象URLへのHEADリクエストで到達性を判定するProbe実装。
// レスポンスのステータスコードは問わず、応答が返ってきたこと自体を到達とみなす。
type HTTPProbe struct {
	httpClient *http.Client
	logger     *slog.Logger
	targetURL  string
	timeout    time.Duration
}

// NewHTTPProbe はHTTPProbeの新しいインスタンスを生成する。
func NewHTTPProbe(targetURL string, httpClient *http.Client, logger *slog.Logger, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{
		httpClient: httpClient,
		logger:     logger,
		targetURL:  targetURL,
		timeout:    timeout,
	}
}

// IsConnected は対象URLへ到達できるかを返す。
// タイムアウトを含むあらゆる失敗は「未接続」として扱う。
func (p *HTTPProbe) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.targetURL, nil)
	if err != nil {
		p.logger.Warn("疎通確認リクエストの作成に失敗しました",
			slog.String("error", err.Error()),
		)
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug("疎通確認に失敗しました",
			slog.String("target", p.targetURL),
			slog.String("error", err.Error()),
		)
		return false
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	resp.Body.Close()
	return true
}
