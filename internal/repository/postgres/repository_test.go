package postgres

import (
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// dryRunRepository builds SQL without a server behind it.
func dryRunRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=barber dbname=barberdash sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	return newRepository(db, nil)
}

func assertContains(t *testing.T, sql string, parts ...string) {
	t.Helper()
	for _, part := range parts {
		if !strings.Contains(sql, part) {
			t.Errorf("SQL %q does not contain %q", sql, part)
		}
	}
}

func TestListQuery(t *testing.T) {
	r := dryRunRepository(t)
	sql := r.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		q, err := r.listQuery(tx, store.CollectionHistory, store.ListOptions{
			Filter: store.Filter{"barber_id": "1"},
			SortBy: "timestamp",
		})
		if err != nil {
			t.Fatalf("listQuery() error = %v", err)
		}
		var rows []map[string]any
		return q.Find(&rows)
	})
	assertContains(t, sql, `FROM "history"`, `"barber_id" = '1'`, `ORDER BY "timestamp"`)
}

func TestListQueryDefaultOrder(t *testing.T) {
	r := dryRunRepository(t)
	listSQL := func(collection string) string {
		return r.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			q, err := r.listQuery(tx, collection, store.ListOptions{})
			if err != nil {
				t.Fatalf("listQuery(%s) error = %v", collection, err)
			}
			var rows []map[string]any
			return q.Find(&rows)
		})
	}

	assertContains(t, listSQL(store.CollectionHistory), `FROM "history"`, `ORDER BY "seq"`)
	if sql := listSQL(store.CollectionBarbers); strings.Contains(sql, "ORDER BY") {
		t.Errorf("SQL %q orders a collection without a default order", sql)
	}
}

func TestCreateLeavesSequenceToDatabase(t *testing.T) {
	r := dryRunRepository(t)
	sql := r.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		values, err := normalize(store.Row{"id": "h1", "barber_id": "1", "price": 40.0})
		if err != nil {
			t.Fatalf("normalize() error = %v", err)
		}
		return tx.Model(&HistoryRecord{}).Create(values)
	})
	assertContains(t, sql, `INSERT INTO "history"`)
	if strings.Contains(sql, `"seq"`) {
		t.Errorf("SQL %q writes the sequence column", sql)
	}
}

func TestUpsertQuery(t *testing.T) {
	r := dryRunRepository(t)

	t.Run("updates non key columns on conflict", func(t *testing.T) {
		sql := r.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			q, values, err := r.upsertQuery(tx, store.CollectionConfigs, []string{"barber_id", "service_id"}, store.Row{
				"barber_id":     "1",
				"service_id":    "corte",
				"current_price": 45.0,
			})
			if err != nil {
				t.Fatalf("upsertQuery() error = %v", err)
			}
			if store.Row(values).ID() == "" {
				t.Error("upsertQuery() did not assign an id for insertion")
			}
			return q.Create(values)
		})
		assertContains(t, sql,
			`INSERT INTO "barber_service_configs"`,
			`ON CONFLICT ("barber_id","service_id") DO UPDATE SET`,
			`"excluded"."current_price"`,
		)
		if strings.Contains(sql, `"excluded"."id"`) {
			t.Errorf("SQL %q overwrites the id on conflict", sql)
		}
	})

	t.Run("key only row does nothing on conflict", func(t *testing.T) {
		sql := r.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			q, values, err := r.upsertQuery(tx, store.CollectionServices, []string{"id"}, store.Row{"id": "corte"})
			if err != nil {
				t.Fatalf("upsertQuery() error = %v", err)
			}
			return q.Create(values)
		})
		assertContains(t, sql, `ON CONFLICT ("id") DO NOTHING`)
	})

	t.Run("missing key field", func(t *testing.T) {
		if _, _, err := r.upsertQuery(r.db, store.CollectionConfigs, []string{"barber_id", "service_id"}, store.Row{"barber_id": "1"}); err == nil {
			t.Fatal("upsertQuery() error = nil, want missing key error")
		}
	})
}

func TestDeleteQuery(t *testing.T) {
	r := dryRunRepository(t)

	t.Run("by ids", func(t *testing.T) {
		sql := r.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			q, model, err := r.deleteQuery(tx, store.CollectionHistory, store.ByID("h1", "h2"))
			if err != nil {
				t.Fatalf("deleteQuery() error = %v", err)
			}
			return q.Delete(model)
		})
		assertContains(t, sql, `DELETE FROM "history"`, `'h1'`, `'h2'`)
	})

	t.Run("by filter", func(t *testing.T) {
		sql := r.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			q, model, err := r.deleteQuery(tx, store.CollectionConfigs, store.Where(store.Filter{"barber_id": "2"}))
			if err != nil {
				t.Fatalf("deleteQuery() error = %v", err)
			}
			return q.Delete(model)
		})
		assertContains(t, sql, `DELETE FROM "barber_service_configs"`, `"barber_id" = '2'`)
	})

	t.Run("empty selector", func(t *testing.T) {
		if _, _, err := r.deleteQuery(r.db, store.CollectionHistory, store.Selector{}); err == nil {
			t.Fatal("deleteQuery() error = nil, want error")
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		if _, _, err := r.deleteQuery(r.db, "stock", store.ByID("x")); err == nil {
			t.Fatal("deleteQuery() error = nil, want error")
		}
	})
}

func TestNormalizeParsesTimeColumns(t *testing.T) {
	got, err := normalize(store.Row{
		"id":        "h1",
		"timestamp": "2026-10-16T17:30:00Z",
		"price":     40.0,
	})
	if err != nil {
		t.Fatalf("normalize() error = %v", err)
	}
	ts, ok := got["timestamp"].(time.Time)
	if !ok {
		t.Fatalf("timestamp = %T, want time.Time", got["timestamp"])
	}
	if want := time.Date(2026, 10, 16, 17, 30, 0, 0, time.UTC); !ts.Equal(want) {
		t.Errorf("timestamp = %v, want %v", ts, want)
	}
	if got["price"] != 40.0 {
		t.Errorf("price = %v, want 40", got["price"])
	}

	if _, err := normalize(store.Row{"scheduled_time": "tomorrow"}); err == nil {
		t.Error("normalize() error = nil, want parse error")
	}
}
