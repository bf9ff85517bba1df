// Package rest talks to a record store over the json-server HTTP dialect.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// Repository is a resty-backed implementation of store.Store.
type Repository struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

var _ store.Store = (*Repository)(nil)

// NewRepository builds a REST record store client from configuration.
func NewRepository(cfg config.StoreConfig, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &Repository{httpClient: restyClient, logger: logger}
}

// List fetches a collection, filtered and sorted server-side.
func (r *Repository) List(ctx context.Context, collection string, opts store.ListOptions) ([]store.Row, error) {
	params := make(map[string]string, len(opts.Filter)+1)
	for _, k := range opts.Filter.Keys() {
		params[k] = fmt.Sprint(opts.Filter[k])
	}
	if opts.SortBy != "" {
		params["_sort"] = opts.SortBy
	}

	var rows []store.Row
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&rows).
		Get(collectionPath(collection))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if resp.IsError() {
		return nil, apiError("list", collection, resp)
	}
	return rows, nil
}

// Get fetches one row by id.
func (r *Repository) Get(ctx context.Context, collection, id string) (store.Row, error) {
	var row store.Row
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetResult(&row).
		Get(itemPath(collection, id))
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if resp.IsError() {
		return nil, apiError("get", collection, resp)
	}
	return row, nil
}

// Create posts a new row and returns the row echoed by the server.
func (r *Repository) Create(ctx context.Context, collection string, row store.Row) (store.Row, error) {
	var created store.Row
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetBody(row).
		SetResult(&created).
		Post(collectionPath(collection))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", collection, err)
	}
	if resp.IsError() {
		return nil, apiError("create", collection, resp)
	}
	r.logger.Debug("row created", zap.String("collection", collection), zap.String("id", created.ID()))
	return created, nil
}

// Update patches the row with the given id.
func (r *Repository) Update(ctx context.Context, collection, id string, patch store.Row) error {
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetBody(patch).
		Patch(itemPath(collection, id))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if resp.IsError() {
		return apiError("update", collection, resp)
	}
	return nil
}

// Upsert looks the row up by its key fields and patches it, or creates it.
// json-server has no native upsert, so this is two round trips.
func (r *Repository) Upsert(ctx context.Context, collection string, keyFields []string, row store.Row) error {
	filter, err := store.KeyFilter(keyFields, row)
	if err != nil {
		return err
	}

	existing, err := r.List(ctx, collection, store.ListOptions{Filter: filter})
	if err != nil {
		return fmt.Errorf("upsert lookup: %w", err)
	}
	if len(existing) == 0 {
		_, err := r.Create(ctx, collection, row)
		return err
	}

	patch := row.Clone()
	delete(patch, "id")
	return r.Update(ctx, collection, existing[0].ID(), patch)
}

// Delete removes rows by id, or lists the filter and deletes each match.
func (r *Repository) Delete(ctx context.Context, collection string, sel store.Selector) error {
	if sel.Empty() {
		return fmt.Errorf("delete %s: selector is empty", collection)
	}

	ids := append([]string(nil), sel.IDs...)
	if len(sel.Filter) > 0 {
		rows, err := r.List(ctx, collection, store.ListOptions{Filter: sel.Filter})
		if err != nil {
			return fmt.Errorf("delete lookup: %w", err)
		}
		for _, row := range rows {
			ids = append(ids, row.ID())
		}
	}

	for _, id := range ids {
		resp, err := r.httpClient.R().
			SetContext(ctx).
			Delete(itemPath(collection, id))
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, id, err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			r.logger.Debug("row already gone", zap.String("collection", collection), zap.String("id", id))
			continue
		}
		if resp.IsError() {
			return apiError("delete", collection, resp)
		}
	}
	return nil
}

func collectionPath(collection string) string {
	return "/" + url.PathEscape(collection)
}

func itemPath(collection, id string) string {
	return collectionPath(collection) + "/" + url.PathEscape(id)
}

func apiError(op, collection string, resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("record store %s %s: status=%d, body=%s", op, collection, resp.StatusCode(), body)
}
