package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/tsudoi/internal/image"
	"github.com/hitoshi/tsudoi/internal/model"
	"github.com/hitoshi/tsudoi/internal/store"
	"github.com/hitoshi/tsudoi/internal/volunteer"
)

// --- テスト用の端末協調オブジェクト ---

type allowAllPermissions struct{}

func (allowAllPermissions) Request(_ context.Context) error { return nil }

type fixedPicker struct {
	asset *image.Asset
}

func (p fixedPicker) Pick(_ context.Context) (*image.Asset, error) { return p.asset, nil }

type emptyBlobReader struct{}

func (emptyBlobReader) Read(_ context.Context, _ string) ([]byte, error) { return nil, nil }

type fixedProbe struct {
	connected atomic.Bool
}

func (p *fixedProbe) IsConnected(_ context.Context) bool { return p.connected.Load() }

func testDeviceDeps(probe *fixedProbe, server *httptest.Server) DeviceDeps {
	// httptestはループバック上で動くため、SSRF防御付きクライアントの
	// 既定アップローダーではなくテストサーバー向けのものを注入する
	uploader := image.NewImageHostUploader(
		server.URL+"/upload", "test-key", server.Client(),
		slog.New(slog.NewJSONHandler(io.Discard, nil)),
	)
	return DeviceDeps{
		Permissions: allowAllPermissions{},
		Picker:      fixedPicker{asset: &image.Asset{FileName: "park.jpg", Base64: "QUJD"}},
		Blobs:       emptyBlobReader{},
		Store:       store.NewMemoryStore(),
		Probe:       probe,
		Uploader:    uploader,
	}
}

// newTestServer はイベントAPIと画像ホストを兼ねるテスト用サーバーを返す。
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		future := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
		past := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
		io.WriteString(w, `[
			{"id":"e1","name":"清掃活動","dateTime":"`+future+`","position":{"latitude":35.6,"longitude":139.7},"volunteersNeeded":2,"volunteersIds":["u1"]},
			{"id":"old","name":"終了済み","dateTime":"`+past+`","position":{"latitude":35.6,"longitude":139.7},"volunteersNeeded":2,"volunteersIds":[]}
		]`)
	})
	mux.HandleFunc("/events/e1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var patch struct {
			VolunteersIDs []string `json:"volunteersIds"`
		}
		json.NewDecoder(r.Body).Decode(&patch)
		resp := map[string]any{
			"id": "e1", "name": "清掃活動",
			"dateTime": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
			"position": map[string]float64{"latitude": 35.6, "longitude": 139.7},
			"volunteersNeeded": 2, "volunteersIds": patch.VolunteersIDs,
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		io.WriteString(w, `{"data":{"url":"https://i.ibb.co/abc/park.jpg"}}`)
	})
	return httptest.NewServer(mux)
}

func testConfig(t *testing.T, serverURL string) {
	t.Helper()
	t.Setenv("API_BASE_URL", serverURL)
	t.Setenv("STORAGE_PATH", t.TempDir())
	t.Setenv("IMAGE_HOST_URL", serverURL+"/upload")
	t.Setenv("IMAGE_HOST_API_KEY", "test-key")
}

func TestNew_FullFlow(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	testConfig(t, server.URL)

	cfg, err := Init(io.Discard)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	probe := &fixedProbe{}
	probe.connected.Store(true)
	dev := testDeviceDeps(probe, server)

	ctx := context.Background()
	core, err := New(ctx, cfg, dev)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// ログイン
	if err := core.Session.Login(ctx, &model.User{ID: "u2", Email: "hana@example.com"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// 接続中の一覧取得: 過去イベントは除外される
	events, err := core.Events.ListUpcoming(ctx)
	if err != nil {
		t.Fatalf("ListUpcoming() error = %v", err)
	}
	if len(events) != 1 || events[0].ID != "e1" {
		t.Fatalf("ListUpcoming() = %d events, want only e1", len(events))
	}

	// 切断後はキャッシュから同じ結果が返る
	probe.connected.Store(false)
	cached, err := core.Events.ListUpcoming(ctx)
	if err != nil {
		t.Fatalf("offline ListUpcoming() error = %v", err)
	}
	if len(cached) != 1 || cached[0].ID != "e1" {
		t.Fatalf("offline ListUpcoming() = %d events, want cached e1", len(cached))
	}
	probe.connected.Store(true)

	// ボランティア登録: セッションのユーザーで楽観的更新
	updated, err := core.Volunteers.Volunteer(ctx, &events[0], core.Session.CurrentUserID())
	if err != nil {
		t.Fatalf("Volunteer() error = %v", err)
	}
	if got := volunteer.Derive(updated, "u2").State; got != volunteer.StateVolunteered {
		t.Errorf("state = %q, want volunteered", got)
	}

	// 画像取り込み → 下書き検証 → 作成ゲート
	res, err := core.Images.Ingest(ctx)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.URL != "https://i.ibb.co/abc/park.jpg" {
		t.Errorf("uploaded URL = %q", res.URL)
	}
}

func TestNew_MissingDeviceDeps(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	testConfig(t, server.URL)

	cfg, err := Init(io.Discard)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if _, err := New(context.Background(), cfg, DeviceDeps{}); err == nil {
		t.Fatal("New() error = nil without device collaborators")
	}
}

func TestNew_RestoresPersistedSession(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()
	testConfig(t, server.URL)

	cfg, err := Init(io.Discard)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	probe := &fixedProbe{}
	dev := testDeviceDeps(probe, server)
	dev.Store.Set(context.Background(), store.KeySession, `{"id":"u9","email":"mem@example.com"}`)

	core, err := New(context.Background(), cfg, dev)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := core.Session.CurrentUserID(); got != "u9" {
		t.Errorf("CurrentUserID() = %q, want u9", got)
	}
}
