package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/domtarget/payload"
	"github.com/hazyhaar/domtarget/selection"
)

func sample(id string, at time.Time) payload.Payload {
	return payload.Payload{
		ID:        id,
		PageURL:   "https://example.com/",
		CreatedAt: at,
		Count:     1,
		Elements:  []selection.ElementData{{Index: 1, TagName: "button", XPath: `//*[@id="go"]`}},
		Text:      "Selected elements: 1",
	}
}

func TestSaveRecent(t *testing.T) {
	st := OpenMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := st.Save(ctx, sample(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	got, err := st.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("got %+v", got)
	}
	if got[0].Elements[0].XPath != `//*[@id="go"]` {
		t.Errorf("elements not round-tripped: %+v", got[0].Elements)
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("created_at: got %v", got[0].CreatedAt)
	}
}

func TestSave_ReplacesSameID(t *testing.T) {
	st := OpenMemory(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p := sample("x", now)
	if err := st.Save(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.Count = 7
	if err := st.Save(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := st.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Count != 7 {
		t.Fatalf("got %+v", got)
	}
}

func TestPrune(t *testing.T) {
	st := OpenMemory(t)
	ctx := context.Background()
	now := time.Now().UTC()

	st.Save(ctx, sample("old", now.Add(-48*time.Hour)))
	st.Save(ctx, sample("new", now))

	n, err := st.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	got, _ := st.Recent(ctx, 10)
	if len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("got %+v", got)
	}
}

func TestOpen_FileCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "archive.db")
	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	var mode string
	if err := st.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestIsBusy(t *testing.T) {
	cases := map[string]bool{
		"SQLITE_BUSY":              true,
		"database is locked (5)":   true,
		"database table is locked": true,
		"no such table: x":         false,
	}
	for msg, want := range cases {
		if got := isBusy(errors.New(msg)); got != want {
			t.Errorf("isBusy(%q) = %v", msg, got)
		}
	}
}

func TestSave_Cancelled(t *testing.T) {
	st := OpenMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := st.Save(ctx, sample("z", time.Now())); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
