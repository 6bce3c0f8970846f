package image

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// maxUploadResponseSize はアップロード応答の読み込み上限（1MB)。
const maxUploadResponseSize = 1 << 20

// ImageHostUploader はbase64ペイロードを受け付ける画像ホストAPIの
// Uploader実装。応答はJSONエンベロープで、成功時はdata.urlに
// ホスト済み画像のURLが入る。
type ImageHostUploader struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	apiKey     string
}

// NewImageHostUploader はImageHostUploaderの新しいインスタンスを生成する。
func NewImageHostUploader(endpoint, apiKey string, httpClient *http.Client, logger *slog.Logger) *ImageHostUploader {
	return &ImageHostUploader{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

// Upload はbase64ペイロードを画像ホストへ送信し、ホスト済みURLを返す。
func (u *ImageHostUploader) Upload(ctx context.Context, payload, fileName string) (string, error) {
	form := url.Values{}
	form.Set("key", u.apiKey)
	form.Set("image", payload)
	if fileName != "" {
		form.Set("name", fileName)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadResponseSize))
	if err != nil {
		return "", fmt.Errorf("応答の読み込みに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		u.logger.Warn("画像ホストが非成功ステータスを返しました",
			slog.Int("status", resp.StatusCode),
		)
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("応答のパースに失敗しました: %w", err)
	}
	if envelope.Data.URL == "" {
		return "", fmt.Errorf("応答にdata.urlが含まれていません")
	}
	return envelope.Data.URL, nil
}
