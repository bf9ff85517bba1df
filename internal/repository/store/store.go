// Package store defines the collection-style CRUD contract the dashboard
// needs from its record store, independent of the backend behind it.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Collections consumed by the dashboard.
const (
	CollectionBarbers      = "barbers"
	CollectionHistory      = "history"
	CollectionConfigs      = "barber_service_configs"
	CollectionServices     = "services"
	CollectionAppointments = "appointments"
)

// Collections lists every known collection.
var Collections = []string{
	CollectionBarbers,
	CollectionHistory,
	CollectionConfigs,
	CollectionServices,
	CollectionAppointments,
}

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrUnknownCollection is returned for collections outside Collections.
var ErrUnknownCollection = errors.New("unknown collection")

// Row is a record in its snake_case wire form.
type Row map[string]any

// ID returns the row identifier as a string.
func (r Row) ID() string {
	if r == nil {
		return ""
	}
	v, ok := r["id"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Filter selects rows whose fields equal the given values.
type Filter map[string]any

// Matches reports whether the row satisfies every filter field. Values are
// compared by their string form so that numbers decoded from JSON still
// match typed Go values.
func (f Filter) Matches(r Row) bool {
	for k, want := range f {
		got, ok := r[k]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// Keys returns the filter fields in a stable order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Selector addresses rows to delete: either an explicit id list or a filter.
type Selector struct {
	IDs    []string
	Filter Filter
}

// ByID selects rows by identifier.
func ByID(ids ...string) Selector {
	return Selector{IDs: ids}
}

// Where selects rows matching a filter.
func Where(f Filter) Selector {
	return Selector{Filter: f}
}

// Empty reports whether the selector addresses nothing.
func (s Selector) Empty() bool {
	return len(s.IDs) == 0 && len(s.Filter) == 0
}

// ListOptions narrows and orders List results.
type ListOptions struct {
	Filter Filter
	SortBy string
}

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mock_store

// Store is the record store contract.
type Store interface {
	List(ctx context.Context, collection string, opts ListOptions) ([]Row, error)
	Get(ctx context.Context, collection, id string) (Row, error)
	Create(ctx context.Context, collection string, row Row) (Row, error)
	Update(ctx context.Context, collection, id string, patch Row) error
	Upsert(ctx context.Context, collection string, keyFields []string, row Row) error
	Delete(ctx context.Context, collection string, sel Selector) error
}

// KeyFilter builds the filter addressing a row by its natural key fields.
func KeyFilter(keyFields []string, row Row) (Filter, error) {
	if len(keyFields) == 0 {
		return nil, errors.New("upsert requires at least one key field")
	}
	f := make(Filter, len(keyFields))
	for _, k := range keyFields {
		v, ok := row[k]
		if !ok || v == nil {
			return nil, fmt.Errorf("upsert key field %s missing from row", k)
		}
		f[k] = v
	}
	return f, nil
}

// ValidateCollection rejects unknown collection names.
func ValidateCollection(collection string) error {
	for _, c := range Collections {
		if c == collection {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
}

// SortRows orders rows by a field, numbers numerically and everything else
// by string form. Rows missing the field sort last. The sort is stable.
func SortRows(rows []Row, field string) {
	if field == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, aok := rows[i][field]
		b, bok := rows[j][field]
		if !aok || !bok {
			return aok && !bok
		}
		af, aNum := toFloat(a)
		bf, bNum := toFloat(b)
		if aNum && bNum {
			return af < bf
		}
		return fmt.Sprint(a) < fmt.Sprint(b)
	})
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
