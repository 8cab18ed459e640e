package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// fakeStore is an in-memory key-value store.
type fakeStore struct {
	values map[string]string
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) SetValue(ctx context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func TestLoadMissingKey(t *testing.T) {
	l := New(newFakeStore(), "cron_enforcements")
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(l.Entries()) != 0 {
		t.Errorf("expected empty ledger, got %v", l.Entries())
	}
}

func TestLoadMalformedDocument(t *testing.T) {
	store := newFakeStore()
	store.values["cron_enforcements"] = "{not json"

	l := New(store, "cron_enforcements")
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load should not fail on malformed document: %v", err)
	}
	if len(l.Entries()) != 0 {
		t.Errorf("expected empty ledger after malformed document, got %v", l.Entries())
	}
}

func TestLoadStoreError(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")

	l := New(store, "cron_enforcements")
	if err := l.Load(context.Background()); err == nil {
		t.Error("expected error when store is unreachable")
	}
}

func TestRoundTrip(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	l := New(store, "cron_enforcements")
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	l.Set("pack.rule_a", "enf-1")
	l.Set("pack.rule_b", Sentinel)
	if err := l.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh ledger over the same store sees the saved entries.
	l2 := New(store, "cron_enforcements")
	if err := l2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, ok := l2.Get("pack.rule_a"); !ok || v != "enf-1" {
		t.Errorf("pack.rule_a = %q, %v", v, ok)
	}
	if v, ok := l2.Get("pack.rule_b"); !ok || v != Sentinel {
		t.Errorf("pack.rule_b = %q, %v", v, ok)
	}

	l2.Delete("pack.rule_a")
	if l2.Has("pack.rule_a") {
		t.Error("pack.rule_a should be gone after Delete")
	}
	if err := l2.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var doc map[string]string
	if err := json.Unmarshal([]byte(store.values["cron_enforcements"]), &doc); err != nil {
		t.Fatalf("stored document is not JSON: %v", err)
	}
	if len(doc) != 1 {
		t.Errorf("stored document = %v, want only pack.rule_b", doc)
	}
}

func TestEntriesIsACopy(t *testing.T) {
	l := New(newFakeStore(), "k")
	l.Set("r", "e")

	snap := l.Entries()
	snap["r"] = "mutated"

	if v, _ := l.Get("r"); v != "e" {
		t.Errorf("mutating the snapshot leaked into the ledger: %q", v)
	}
}
