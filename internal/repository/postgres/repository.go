// Package postgres stores the dashboard collections in PostgreSQL through
// gorm. Each collection is a table whose columns carry the snake_case wire
// names, so rows move in and out as plain maps.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// Repository implements store.Store on top of a gorm connection.
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ store.Store = (*Repository)(nil)

// NewRepository opens the database described by cfg and migrates the schema.
func NewRepository(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	r := newRepository(db, logger)
	if err := r.Migrate(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func newRepository(db *gorm.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

// Migrate creates or updates one table per collection.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&BarberRecord{},
		&HistoryRecord{},
		&ConfigRecord{},
		&ServiceRecord{},
		&AppointmentRecord{},
	); err != nil {
		return fmt.Errorf("migrate postgres schema: %w", err)
	}
	r.logger.Info("postgres schema migrated")
	return nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// List returns the rows matching opts.
func (r *Repository) List(ctx context.Context, collection string, opts store.ListOptions) ([]store.Row, error) {
	q, err := r.listQuery(r.db.WithContext(ctx), collection, opts)
	if err != nil {
		return nil, err
	}
	var found []map[string]any
	if err := q.Find(&found).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	rows := make([]store.Row, 0, len(found))
	for _, m := range found {
		rows = append(rows, store.Row(m))
	}
	return rows, nil
}

func (r *Repository) listQuery(tx *gorm.DB, collection string, opts store.ListOptions) (*gorm.DB, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, err
	}
	q := tx.Model(model)
	if len(opts.Filter) > 0 {
		q = q.Where(map[string]any(opts.Filter))
	}
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = defaultOrder[collection]
	}
	if sortBy != "" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}})
	}
	return q, nil
}

// Get returns one row by id.
func (r *Repository) Get(ctx context.Context, collection, id string) (store.Row, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, err
	}
	var found []map[string]any
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Limit(1).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return store.Row(found[0]), nil
}

// Create inserts a row, assigning an id when the row has none.
func (r *Repository) Create(ctx context.Context, collection string, row store.Row) (store.Row, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, err
	}
	created, err := normalize(row)
	if err != nil {
		return nil, err
	}
	if store.Row(created).ID() == "" {
		created["id"] = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Model(model).Create(created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%s/%s: duplicate id", collection, store.Row(created).ID())
		}
		return nil, fmt.Errorf("create %s: %w", collection, err)
	}

	out := row.Clone()
	out["id"] = created["id"]
	return out, nil
}

// Update sets the fields of patch on the row with the given id.
func (r *Repository) Update(ctx context.Context, collection, id string, patch store.Row) error {
	model, err := modelFor(collection)
	if err != nil {
		return err
	}
	values, err := normalize(patch)
	if err != nil {
		return err
	}
	delete(values, "id")
	if len(values) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return nil
}

// Upsert inserts row or, on a key conflict, overwrites its non-key fields.
// keyFields must be covered by a unique index.
func (r *Repository) Upsert(ctx context.Context, collection string, keyFields []string, row store.Row) error {
	q, values, err := r.upsertQuery(r.db.WithContext(ctx), collection, keyFields, row)
	if err != nil {
		return err
	}
	if err := q.Create(values).Error; err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

func (r *Repository) upsertQuery(tx *gorm.DB, collection string, keyFields []string, row store.Row) (*gorm.DB, map[string]any, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, nil, err
	}
	if _, err := store.KeyFilter(keyFields, row); err != nil {
		return nil, nil, err
	}
	values, err := normalize(row)
	if err != nil {
		return nil, nil, err
	}
	if store.Row(values).ID() == "" {
		values["id"] = uuid.NewString()
	}

	keys := make(map[string]struct{}, len(keyFields))
	conflict := make([]clause.Column, 0, len(keyFields))
	for _, k := range keyFields {
		keys[k] = struct{}{}
		conflict = append(conflict, clause.Column{Name: k})
	}
	var updates []string
	for _, k := range store.Filter(values).Keys() {
		if _, isKey := keys[k]; isKey || k == "id" {
			continue
		}
		updates = append(updates, k)
	}

	onConflict := clause.OnConflict{Columns: conflict}
	if len(updates) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(updates)
	}
	return tx.Model(model).Clauses(onConflict), values, nil
}

// Delete removes the rows selected by ids or by filter.
func (r *Repository) Delete(ctx context.Context, collection string, sel store.Selector) error {
	q, model, err := r.deleteQuery(r.db.WithContext(ctx), collection, sel)
	if err != nil {
		return err
	}
	res := q.Delete(model)
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", collection, res.Error)
	}
	r.logger.Debug("rows deleted", zap.String("collection", collection), zap.Int64("count", res.RowsAffected))
	return nil
}

func (r *Repository) deleteQuery(tx *gorm.DB, collection string, sel store.Selector) (*gorm.DB, any, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, nil, err
	}
	if sel.Empty() {
		return nil, nil, errors.New("delete requires ids or a filter")
	}
	q := tx
	switch {
	case len(sel.IDs) > 0 && len(sel.Filter) > 0:
		q = q.Where("id IN ?", sel.IDs).Or(map[string]any(sel.Filter))
	case len(sel.IDs) > 0:
		q = q.Where("id IN ?", sel.IDs)
	default:
		q = q.Where(map[string]any(sel.Filter))
	}
	return q, model, nil
}

// normalize copies row into a column map, turning RFC 3339 strings in time
// columns into time.Time so the driver binds them as timestamps.
func normalize(row store.Row) (map[string]any, error) {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if _, isTime := timeColumns[k]; isTime {
			if s, ok := v.(string); ok {
				t, err := time.Parse(time.RFC3339Nano, s)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", k, err)
				}
				v = t
			}
		}
		out[k] = v
	}
	return out, nil
}
