// Package security は外部URLへアクセスする際の防護機能を提供する。
package security

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes は外部アクセスで許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// 画像ホストや疎通確認先のURLは設定値由来であり、検証なしで
// ダイヤルするとプライベートネットワークへ誘導されうるため、
// safeurlのDialer検証でプライベートIP・ループバック・リンクローカル・
// メタデータIPへのリクエストをブロックする。
// DNS解決後のIPアドレスも検証されるため、DNS再バインディングにも対応する。
func NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateImageURL はアップロード済み画像URLとして妥当かを静的に検証する。
// DNS解決は行わない。下書き検証とイベント受信時の両方で使用する。
func ValidateImageURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	ok := false
	for _, allowed := range allowedSchemes {
		if scheme == allowed {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	if parsed.Hostname() == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	return nil
}
