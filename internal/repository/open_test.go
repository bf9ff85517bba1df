package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/repository/memory"
	"github.com/mamadbah2/barberdash/internal/repository/rest"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory file", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Backend: config.BackendMemory, File: filepath.Join(t.TempDir(), "db.json")}}
		st, closeFn, err := Open(ctx, cfg, nil)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = closeFn(ctx) }()
		if _, ok := st.(*memory.Repository); !ok {
			t.Fatalf("Open() = %T, want *memory.Repository", st)
		}
		if _, err := st.Create(ctx, store.CollectionBarbers, store.Row{"name": "João"}); err != nil {
			t.Errorf("Create() error = %v", err)
		}
	})

	t.Run("rest", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Backend: config.BackendREST, BaseURL: "http://localhost:3000"}}
		st, _, err := Open(ctx, cfg, nil)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, ok := st.(*rest.Repository); !ok {
			t.Errorf("Open() = %T, want *rest.Repository", st)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Backend: "sqlite"}}
		if _, _, err := Open(ctx, cfg, nil); err == nil {
			t.Error("Open() error = nil, want unsupported backend")
		}
	})
}
