// Package memory is an in-process record store. With a file path it also
// persists every collection to a single JSON document, the same shape the
// json-server mock used (one top-level array per collection).
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// Repository implements store.Store in memory.
type Repository struct {
	mu     sync.RWMutex
	data   map[string][]store.Row
	path   string
	logger *zap.Logger
}

var _ store.Store = (*Repository)(nil)

// NewRepository builds an empty in-memory store.
func NewRepository(logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	data := make(map[string][]store.Row, len(store.Collections))
	for _, c := range store.Collections {
		data[c] = nil
	}
	return &Repository{data: data, logger: logger}
}

// NewFileRepository loads the JSON document at path (if it exists) and
// writes it back after every mutation.
func NewFileRepository(path string, logger *zap.Logger) (*Repository, error) {
	r := NewRepository(logger)
	r.path = path

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("read store file %s: %w", path, err)
	}

	doc := map[string][]store.Row{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode store file %s: %w", path, err)
		}
	}
	for c, rows := range doc {
		if store.ValidateCollection(c) != nil {
			r.logger.Warn("ignoring unknown collection in store file", zap.String("collection", c))
			continue
		}
		r.data[c] = rows
	}
	return r, nil
}

// List returns matching rows in insertion order unless a sort field is given.
func (r *Repository) List(_ context.Context, collection string, opts store.ListOptions) ([]store.Row, error) {
	if err := store.ValidateCollection(collection); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]store.Row, 0, len(r.data[collection]))
	for _, row := range r.data[collection] {
		if opts.Filter.Matches(row) {
			out = append(out, row.Clone())
		}
	}
	store.SortRows(out, opts.SortBy)
	return out, nil
}

// Get returns one row by id.
func (r *Repository) Get(_ context.Context, collection, id string) (store.Row, error) {
	if err := store.ValidateCollection(collection); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(collection, id)
	if idx < 0 {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return r.data[collection][idx].Clone(), nil
}

// Create appends a row, assigning an id when the row has none.
func (r *Repository) Create(_ context.Context, collection string, row store.Row) (store.Row, error) {
	if err := store.ValidateCollection(collection); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := row.Clone()
	if created.ID() == "" {
		created["id"] = uuid.NewString()
	}
	if r.indexOf(collection, created.ID()) >= 0 {
		return nil, fmt.Errorf("%s/%s: duplicate id", collection, created.ID())
	}
	r.data[collection] = append(r.data[collection], created)

	if err := r.persistLocked(); err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// Update merges patch into the row with the given id.
func (r *Repository) Update(_ context.Context, collection, id string, patch store.Row) error {
	if err := store.ValidateCollection(collection); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(collection, id)
	if idx < 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	current := r.data[collection][idx]
	for k, v := range patch {
		if k == "id" {
			continue
		}
		current[k] = v
	}
	return r.persistLocked()
}

// Upsert replaces the fields of the row matching keyFields, or inserts it.
func (r *Repository) Upsert(_ context.Context, collection string, keyFields []string, row store.Row) error {
	if err := store.ValidateCollection(collection); err != nil {
		return err
	}
	filter, err := store.KeyFilter(keyFields, row)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.data[collection] {
		if !filter.Matches(existing) {
			continue
		}
		for k, v := range row {
			if k == "id" {
				continue
			}
			existing[k] = v
		}
		return r.persistLocked()
	}

	inserted := row.Clone()
	if inserted.ID() == "" {
		inserted["id"] = uuid.NewString()
	}
	r.data[collection] = append(r.data[collection], inserted)
	return r.persistLocked()
}

// Delete removes the selected rows. Missing ids are ignored.
func (r *Repository) Delete(_ context.Context, collection string, sel store.Selector) error {
	if err := store.ValidateCollection(collection); err != nil {
		return err
	}
	if sel.Empty() {
		return errors.New("delete requires ids or a filter")
	}

	ids := make(map[string]struct{}, len(sel.IDs))
	for _, id := range sel.IDs {
		ids[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.data[collection][:0:0]
	for _, row := range r.data[collection] {
		_, byID := ids[row.ID()]
		byFilter := len(sel.Filter) > 0 && sel.Filter.Matches(row)
		if byID || byFilter {
			continue
		}
		kept = append(kept, row)
	}
	r.data[collection] = kept
	return r.persistLocked()
}

func (r *Repository) indexOf(collection, id string) int {
	for i, row := range r.data[collection] {
		if row.ID() == id {
			return i
		}
	}
	return -1
}

func (r *Repository) persistLocked() error {
	if r.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := os.WriteFile(r.path, raw, 0o644); err != nil {
		return fmt.Errorf("write store file %s: %w", r.path, err)
	}
	r.logger.Debug("store file written", zap.String("path", r.path))
	return nil
}
