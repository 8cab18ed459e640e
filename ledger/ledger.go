// Package ledger tracks which enforcement was last alerted per rule so
// repeated poll cycles do not re-dispatch the same alert. The whole mapping
// lives under a single key in the platform key-value store.
package ledger

import (
	"context"
	"encoding/json"
	"log"
)

// Sentinel marks a rule whose evaluation error was already alerted without an
// enforcement execution to point at.
const Sentinel = "error without enforcement id"

// Store is the slice of the platform key-value API the ledger needs.
type Store interface {
	GetValue(ctx context.Context, key string) (value string, ok bool, err error)
	SetValue(ctx context.Context, key, value string) error
}

// Ledger is a rule ref → last alerted enforcement ID mapping. It is loaded
// once at the start of a poll cycle, mutated in memory, and saved once at the
// end. Only one poll cycle runs at a time, so there is no locking; the save
// is a whole-document overwrite.
type Ledger struct {
	store   Store
	key     string
	entries map[string]string
}

func New(store Store, key string) *Ledger {
	return &Ledger{
		store:   store,
		key:     key,
		entries: make(map[string]string),
	}
}

// Load replaces the in-memory state with the stored document. A missing or
// malformed document is treated as an empty ledger, never a fatal condition.
func (l *Ledger) Load(ctx context.Context) error {
	l.entries = make(map[string]string)

	value, ok, err := l.store.GetValue(ctx, l.key)
	if err != nil {
		return err
	}
	if !ok || value == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(value), &l.entries); err != nil {
		log.Printf("ledger: discarding malformed document under %q: %v", l.key, err)
		l.entries = make(map[string]string)
	}
	return nil
}

// Save writes the whole mapping back to the store.
func (l *Ledger) Save(ctx context.Context) error {
	data, err := json.Marshal(l.entries)
	if err != nil {
		return err
	}
	return l.store.SetValue(ctx, l.key, string(data))
}

func (l *Ledger) Get(ruleRef string) (string, bool) {
	v, ok := l.entries[ruleRef]
	return v, ok
}

func (l *Ledger) Set(ruleRef, value string) {
	l.entries[ruleRef] = value
}

func (l *Ledger) Delete(ruleRef string) {
	delete(l.entries, ruleRef)
}

func (l *Ledger) Has(ruleRef string) bool {
	_, ok := l.entries[ruleRef]
	return ok
}

// Entries returns a copy of the current mapping, for logging and inspection.
func (l *Ledger) Entries() map[string]string {
	out := make(map[string]string, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}
