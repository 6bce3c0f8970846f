package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/tsudoi/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestClient_ListEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/events" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID header is missing")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"id":"e1","name":"清掃活動","dateTime":"2026-05-01T09:00:00.000Z","position":{"latitude":35.6,"longitude":139.7},"volunteersNeeded":3,"volunteersIds":["u1"]},
			{"id":"e2","name":"祭り","dateTime":"2026-06-01T10:00:00.000Z","position":{"latitude":35.7,"longitude":139.8},"volunteersNeeded":5,"volunteersIds":[]}
		]`)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger(), nil)

	events, err := c.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].ID != "e1" || events[0].Name != "清掃活動" {
		t.Errorf("events[0] = %+v", events[0])
	}
	want := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	if !events[0].DateTime.Equal(want) {
		t.Errorf("DateTime = %v, want %v", events[0].DateTime, want)
	}
}

func TestClient_GetEvent_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger(), nil)

	_, err := c.GetEvent(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetEvent() error = nil, want error")
	}
	if model.CodeOf(err) != model.ErrCodeEventNotFound {
		t.Errorf("error code = %q, want %q", model.CodeOf(err), model.ErrCodeEventNotFound)
	}
}

func TestClient_CreateEvent_OmitsID(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/events" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"e9","name":"植樹会","dateTime":"2026-07-01T09:00:00.000Z","position":{"latitude":1,"longitude":2},"volunteersNeeded":4,"volunteersIds":[]}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger(), nil)

	created, err := c.CreateEvent(context.Background(), &model.Event{
		Name:             "植樹会",
		DateTime:         time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
		Position:         &model.Position{Latitude: 1, Longitude: 2},
		VolunteersNeeded: 4,
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if created.ID != "e9" {
		t.Errorf("created.ID = %q, want e9", created.ID)
	}

	if _, ok := received["id"]; ok {
		t.Error("request body contains id, want server-assigned")
	}
	if received["dateTime"] != "2026-07-01T09:00:00.000Z" {
		t.Errorf("dateTime = %v, want ISO-8601 string", received["dateTime"])
	}
	if received["volunteersIds"] == nil {
		t.Error("volunteersIds is null, want empty array")
	}
}

func TestClient_UpdateVolunteers_SendsOnlyChangedField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/events/e1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var patch map[string]any
		if err := json.Unmarshal(body, &patch); err != nil {
			t.Fatalf("request body is not JSON: %v", err)
		}
		if len(patch) != 1 {
			t.Errorf("patch has %d fields, want only volunteersIds: %v", len(patch), patch)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"e1","name":"清掃活動","dateTime":"2026-05-01T09:00:00.000Z","position":{"latitude":1,"longitude":2},"volunteersNeeded":2,"volunteersIds":["u1","u2"]}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger(), nil)

	updated, err := c.UpdateVolunteers(context.Background(), "e1", []string{"u1", "u2"})
	if err != nil {
		t.Fatalf("UpdateVolunteers() error = %v", err)
	}
	if len(updated.VolunteersIDs) != 2 {
		t.Errorf("VolunteersIDs = %v, want [u1 u2]", updated.VolunteersIDs)
	}
}

func TestClient_GetUser_StructuredName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/u1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"u1","email":"taro@example.com","mobile":"090-1234-5678","name":{"firstname":"Taro","lastname":"Yamada"}}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger(), nil)

	user, err := c.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user.DisplayName() != "Taro Yamada" {
		t.Errorf("DisplayName() = %q, want %q", user.DisplayName(), "Taro Yamada")
	}
	if user.NormalizedMobile() != "09012345678" {
		t.Errorf("NormalizedMobile() = %q", user.NormalizedMobile())
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger(), nil)

	if _, err := c.ListEvents(context.Background()); err == nil {
		t.Fatal("ListEvents() error = nil, want error on 500")
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{not json`)
	}))
	defer server.Close()

	c := NewClient(server.URL, server.Client(), testLogger(), nil)

	if _, err := c.ListEvents(context.Background()); err == nil {
		t.Fatal("ListEvents() error = nil, want parse error")
	}
}
