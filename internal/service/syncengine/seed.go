package syncengine

import (
	"context"
	"fmt"

	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// SeedDefaults writes the default barbers when the shop has none and the
// built-in catalog when the store has no services. A populated store is
// left alone.
func (e *Engine) SeedDefaults(ctx context.Context) (*Result, error) {
	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}

	var barbers []models.Barber
	if len(e.state.Barbers) == 0 {
		barbers = models.DefaultBarbers()
		e.state.Barbers = append(e.state.Barbers, barbers...)
		for _, b := range barbers {
			for _, svc := range e.state.Catalog {
				e.state.setConfig(models.DefaultConfig(b.ID, svc))
			}
		}
	}
	seedCatalog := e.state.catalogDefaulted
	catalogStep := e.seedCatalogStep()

	if len(barbers) == 0 && !seedCatalog {
		e.mu.Unlock()
		return resolved("seed_defaults", nil), nil
	}

	res := e.dispatch("seed_defaults", catalogStep, step{
		name: "create barbers",
		write: func(ctx context.Context) error {
			for _, b := range barbers {
				if _, err := e.store.Create(ctx, store.CollectionBarbers, encodeBarber(b)); err != nil {
					return fmt.Errorf("barber %s: %w", b.ID, err)
				}
			}
			return nil
		},
		rollback: func(s *State) {
			for _, b := range barbers {
				s.dropBarber(b.ID)
			}
		},
	})
	e.mu.Unlock()
	return res, nil
}
