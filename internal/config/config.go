package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Uploader は画像アップロード先の種別を表す。
type Uploader string

const (
	// UploaderImageHost はbase64ペイロードを受け付ける画像ホストAPI。
	UploaderImageHost Uploader = "imagehost"
	// UploaderCloudinary はCloudinary SDK経由のアップロード。
	UploaderCloudinary Uploader = "cloudinary"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Remote Event Service
	APIBaseURL string
	APITimeout time.Duration

	// Rate Limit （req/min単位で指定、クライアント側の自衛）
	APIRateLimit int
	APIRateBurst int

	// Connectivity Probe
	ProbeURL     string
	ProbeTimeout time.Duration

	// Persistent Store
	StoragePath string

	// Image Upload
	ImageUploader      Uploader
	ImageHostURL       string
	ImageHostAPIKey    string
	CloudinaryURL      string
	CloudinaryFolder   string
	UploadTimeout      time.Duration
	UploadMaxSizeBytes int64
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（未存在は無視）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = os.Getenv("API_BASE_URL")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}

	cfg.StoragePath = os.Getenv("STORAGE_PATH")
	if cfg.StoragePath == "" {
		missing = append(missing, "STORAGE_PATH")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 10*time.Second)
	cfg.APIRateLimit = getEnvInt("API_RATE_LIMIT", 60)
	cfg.APIRateBurst = getEnvInt("API_RATE_BURST", 10)
	cfg.ProbeURL = getEnvString("PROBE_URL", cfg.APIBaseURL)
	cfg.ProbeTimeout = getEnvDuration("PROBE_TIMEOUT", 3*time.Second)
	cfg.ImageUploader = Uploader(getEnvString("IMAGE_UPLOADER", string(UploaderImageHost)))
	cfg.ImageHostURL = getEnvString("IMAGE_HOST_URL", "https://api.imgbb.com/1/upload")
	cfg.ImageHostAPIKey = getEnvString("IMAGE_HOST_API_KEY", "")
	cfg.CloudinaryURL = getEnvString("CLOUDINARY_URL", "")
	cfg.CloudinaryFolder = getEnvString("CLOUDINARY_FOLDER", "events")
	cfg.UploadTimeout = getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second)
	cfg.UploadMaxSizeBytes = getEnvInt64("UPLOAD_MAX_SIZE", 10485760)

	switch cfg.ImageUploader {
	case UploaderImageHost, UploaderCloudinary:
	default:
		return nil, fmt.Errorf("invalid IMAGE_UPLOADER: %s", cfg.ImageUploader)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
