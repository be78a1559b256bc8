package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "verdicts.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conf := 0.92
	header := "Server: nginx"
	in := &CacheRecord{
		URLHash:              "abc123",
		URL:                  "http://example.com/login",
		HeaderInfo:           &header,
		IsMalicious:          true,
		Confidence:           &conf,
		JustificationSummary: "Domain was registered only 10 days ago",
		RawFeatures:          []byte(`{"url":"http://example.com/login"}`),
	}
	if err := s.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.URL != in.URL || !got.IsMalicious {
		t.Errorf("got %+v", got)
	}
	if got.Confidence == nil || *got.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", got.Confidence)
	}
	if got.HeaderInfo == nil || *got.HeaderInfo != header {
		t.Errorf("HeaderInfo = %v", got.HeaderInfo)
	}
	if string(got.RawFeatures) != string(in.RawFeatures) {
		t.Errorf("RawFeatures = %s", got.RawFeatures)
	}
	if got.ID == "" {
		t.Error("record did not receive an id")
	}
	if got.TrueLabel != nil {
		t.Error("TrueLabel should be unset until a reviewer writes it")
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not persisted")
	}
}

func TestSQLiteMiss(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteUpsertOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &CacheRecord{
		URLHash:              "h1",
		URL:                  "http://example.com",
		IsMalicious:          false,
		JustificationSummary: "looks fine",
		UpdatedAt:            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("put: %v", err)
	}
	prev, err := s.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	conf := 0.7
	second := &CacheRecord{
		URLHash:              "h1",
		URL:                  "http://example.com",
		IsMalicious:          true,
		Confidence:           &conf,
		JustificationSummary: "changed verdict",
	}
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if !got.IsMalicious || got.JustificationSummary != "changed verdict" {
		t.Errorf("upsert did not overwrite: %+v", got)
	}
	if got.ID != prev.ID {
		t.Errorf("id changed on upsert: %s -> %s", prev.ID, got.ID)
	}
	if !got.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt not advanced: %v", got.UpdatedAt)
	}
}

func TestSQLiteNilOptionals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := &CacheRecord{
		URLHash:              "h2",
		URL:                  "http://example.org",
		IsMalicious:          false,
		JustificationSummary: "no extras",
	}
	if err := s.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "h2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HeaderInfo != nil || got.Confidence != nil || got.RawFeatures != nil {
		t.Errorf("optionals should stay nil: %+v", got)
	}
}

func TestMemoryStoreMatchesContract(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	if _, err := m.Get(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("miss err = %v, want ErrNotFound", err)
	}
	rec := &CacheRecord{URLHash: "x", URL: "http://a", JustificationSummary: "s"}
	if err := m.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := m.Get(ctx, "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.URL != "http://a" || got.UpdatedAt.IsZero() {
		t.Errorf("got %+v", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}
