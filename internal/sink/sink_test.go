package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/domtarget/internal/config"
	"github.com/hazyhaar/domtarget/internal/store"
	"github.com/hazyhaar/domtarget/payload"
	"github.com/hazyhaar/domtarget/selection"
)

func testPayload() payload.Payload {
	return payload.Payload{
		ID:        "p1",
		PageURL:   "https://example.com/",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Count:     1,
		Elements:  []selection.ElementData{{Index: 1, TagName: "a"}},
		Text:      "Selected elements: 1",
	}
}

func TestStdout_Envelope(t *testing.T) {
	var buf bytes.Buffer
	if err := NewStdout(&buf).Send(context.Background(), testPayload()); err != nil {
		t.Fatal(err)
	}
	var env struct {
		Type string          `json:"type"`
		Data payload.Payload `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("not a JSON line: %q", buf.String())
	}
	if env.Type != "payload" || env.Data.ID != "p1" || env.Data.Count != 1 {
		t.Fatalf("got %+v", env)
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Domtarget-Payload") != "p1" {
			t.Errorf("missing payload id header")
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := wh.Send(context.Background(), testPayload()); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhook_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond)).Send(context.Background(), testPayload())
	if err == nil || calls.Load() != 1 {
		t.Fatalf("err=%v calls=%d", err, calls.Load())
	}
}

func TestWebhook_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookRetries(2), WithWebhookBackoff(time.Millisecond))
	if err := wh.Send(context.Background(), testPayload()); err == nil {
		t.Fatal("expected exhaustion error")
	}
}

func TestRouter_FanOutAndFirstError(t *testing.T) {
	boom := errors.New("boom")
	var got []string
	ok := NewCallback(func(_ context.Context, p payload.Payload) error {
		got = append(got, p.ID)
		return nil
	})
	bad := NewCallback(func(context.Context, payload.Payload) error { return boom })

	r := NewRouter(nil, bad, ok)
	if err := r.Send(context.Background(), testPayload()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(got) != 1 {
		t.Fatal("healthy sink must still receive the payload")
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestArchive(t *testing.T) {
	st := store.OpenMemory(t)
	a := NewArchive(st)
	if err := a.Send(context.Background(), testPayload()); err != nil {
		t.Fatal(err)
	}
	recent, err := a.Store().Recent(context.Background(), 5)
	if err != nil || len(recent) != 1 || recent[0].ID != "p1" {
		t.Fatalf("recent=%+v err=%v", recent, err)
	}
}

func TestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.db")
	r, err := FromConfig([]config.SinkConfig{
		{Type: "stdout"},
		{Type: "webhook", URL: "http://127.0.0.1:1/hook"},
		{Type: "sqlite", Path: path},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Len() != 3 {
		t.Fatalf("len = %d", r.Len())
	}
	if r.Archive() == nil {
		t.Fatal("sqlite sink should be exposed as archive")
	}
	if NewRouter(nil, NewStdout(nil)).Archive() != nil {
		t.Error("no archive configured")
	}

	if _, err := FromConfig([]config.SinkConfig{{Type: "nats"}}, nil); err == nil {
		t.Fatal("unknown type should fail")
	}
}
