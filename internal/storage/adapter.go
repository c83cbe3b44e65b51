package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/slok/tasksync/internal/log"
	"github.com/slok/tasksync/internal/model"
)

// Identity fields checked when looking for a record inside a collection.
const (
	idField       = "id"
	serverIDField = "_id"
)

// AdapterConfig is the configuration for the persistence adapter.
type AdapterConfig struct {
	KV     KV
	Logger log.Logger
}

func (c *AdapterConfig) defaults() error {
	if c.KV == nil {
		return fmt.Errorf("kv is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Adapter"})
	return nil
}

// Adapter stores collections of JSON records on a KV store.
//
// Every collection is stored as a JSON array under its key. Records are
// identified by their `id` field or by the alternate `_id` server field.
// Read-modify-write operations are not atomic, concurrent writers on the same
// key can lose writes (last writer wins).
type Adapter struct {
	kv     KV
	logger log.Logger
}

// NewAdapter returns a new persistence adapter.
func NewAdapter(cfg AdapterConfig) (*Adapter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Adapter{
		kv:     cfg.KV,
		logger: cfg.Logger,
	}, nil
}

// GetItem decodes the collection stored on key into dst.
//
// It returns false if the collection is missing or can't be decoded, in that
// case the caller should act as if nothing has been cached yet.
func (a *Adapter) GetItem(ctx context.Context, key string, dst any) bool {
	raw, ok, err := a.kv.Get(ctx, key)
	if err != nil {
		a.logger.Errorf("Could not read %q from local store: %s", key, err)
		return false
	}
	if !ok {
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		a.logger.Warningf("Ignoring malformed %q local data: %s", key, err)
		return false
	}

	return true
}

// SetItem replaces the collection stored on key with data.
func (a *Adapter) SetItem(ctx context.Context, key string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		a.logger.Errorf("Could not serialize %q: %s", key, err)
		return fmt.Errorf("could not serialize %q: %w", key, err)
	}

	if err := a.kv.Set(ctx, key, string(raw)); err != nil {
		a.logger.Errorf("Could not write %q to local store: %s", key, err)
		return fmt.Errorf("could not write %q: %w", key, err)
	}

	return nil
}

// AddItem appends record to the collection stored on key.
func (a *Adapter) AddItem(ctx context.Context, key string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not serialize record: %w", err)
	}

	records := a.records(ctx, key)
	records = append(records, raw)

	return a.SetItem(ctx, key, records)
}

// UpdateItem shallow merges record into the first entry of the collection
// that has the same identity.
//
// The identity is taken from the record `id` field (or `_id` if the former is
// missing). If no entry matches model.ErrNotFound is returned and nothing is
// written, an update never inserts.
func (a *Adapter) UpdateItem(ctx context.Context, key string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not serialize record: %w", err)
	}

	var patch map[string]json.RawMessage
	if err := json.Unmarshal(raw, &patch); err != nil {
		return fmt.Errorf("record must be an object: %w", model.ErrNotValid)
	}

	id := identityValue(patch[idField])
	if id == "" {
		id = identityValue(patch[serverIDField])
	}
	if id == "" {
		return fmt.Errorf("record has no identity: %w", model.ErrNotValid)
	}

	records := a.records(ctx, key)
	for i, rec := range records {
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(rec, &entry); err != nil {
			continue
		}
		if !matchesID(entry, id) {
			continue
		}

		for k, v := range patch {
			entry[k] = v
		}
		merged, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("could not serialize merged record: %w", err)
		}
		records[i] = merged

		return a.SetItem(ctx, key, records)
	}

	a.logger.Debugf("Record %s not found on %q", id, key)
	return fmt.Errorf("record %s on %q: %w", id, key, model.ErrNotFound)
}

// DeleteItem removes every entry of the collection that has id as identity.
// Deleting a missing id is not an error.
func (a *Adapter) DeleteItem(ctx context.Context, key string, id string) error {
	records := a.records(ctx, key)
	kept := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(rec, &entry); err == nil && matchesID(entry, id) {
			continue
		}
		kept = append(kept, rec)
	}

	return a.SetItem(ctx, key, kept)
}

// records returns the raw records of a collection, missing or malformed
// collections are returned as empty.
func (a *Adapter) records(ctx context.Context, key string) []json.RawMessage {
	var records []json.RawMessage
	if !a.GetItem(ctx, key, &records) {
		return []json.RawMessage{}
	}
	return records
}

func matchesID(entry map[string]json.RawMessage, id string) bool {
	if id == "" {
		return false
	}
	return identityValue(entry[idField]) == id || identityValue(entry[serverIDField]) == id
}

// identityValue returns the string form of a JSON identity, servers can send
// them as strings or numbers.
func identityValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}
