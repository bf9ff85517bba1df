package syncengine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

var serviceKeyFields = []string{fieldID}

// ServiceID derives the catalog id of a new service from its label.
func ServiceID(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// SaveService adds a service to the catalog when def.ID is empty and edits
// the label and base price of an existing one otherwise. Added services are
// editable and go to the end of the catalog.
func (e *Engine) SaveService(ctx context.Context, def models.ServiceDefinition) (models.ServiceDefinition, *Result, error) {
	def.Label = strings.TrimSpace(def.Label)
	if def.Label == "" {
		return models.ServiceDefinition{}, nil, ErrInvalidName
	}
	if def.BasePrice < 0 || math.IsNaN(def.BasePrice) || math.IsInf(def.BasePrice, 0) {
		return models.ServiceDefinition{}, nil, fmt.Errorf("%w: %v", ErrInvalidPrice, def.BasePrice)
	}

	if err := e.lockForMutation(ctx); err != nil {
		return models.ServiceDefinition{}, nil, err
	}

	if def.ID != "" {
		prev, ok := e.state.Service(def.ID)
		if !ok {
			e.mu.Unlock()
			return models.ServiceDefinition{}, nil, fmt.Errorf("%w: %s", ErrUnknownService, def.ID)
		}
		seed := e.seedCatalogStep()
		next := prev
		next.Label = def.Label
		next.BasePrice = def.BasePrice
		next.AllowsSurcharge = def.AllowsSurcharge
		e.state.replaceService(next)
		cleared := e.state.applyService(next)

		steps := []step{seed, {
			name: "upsert service",
			write: func(ctx context.Context) error {
				return e.store.Upsert(ctx, store.CollectionServices, serviceKeyFields, encodeService(next))
			},
			rollback: func(s *State) { s.replaceService(prev) },
		}}
		if len(cleared) > 0 {
			steps = append(steps, step{
				name: "clear surcharges",
				write: func(ctx context.Context) error {
					for _, cfg := range cleared {
						if err := e.upsertConfig(cfg)(ctx); err != nil {
							return err
						}
					}
					return nil
				},
			})
		}
		res := e.dispatch("update_service", steps...)
		e.mu.Unlock()
		return next, res, nil
	}

	def.ID = ServiceID(def.Label)
	if _, exists := e.state.Service(def.ID); exists {
		e.mu.Unlock()
		return models.ServiceDefinition{}, nil, fmt.Errorf("%w: %s", ErrServiceExists, def.ID)
	}
	seed := e.seedCatalogStep()
	def.IsEditable = true
	def.DisplayOrder = e.state.nextDisplayOrder()

	e.state.Catalog = append(e.state.Catalog, def)
	for _, b := range e.state.Barbers {
		e.state.setConfig(models.DefaultConfig(b.ID, def))
	}

	res := e.dispatch("create_service", seed, step{
		name: "create service",
		write: func(ctx context.Context) error {
			_, err := e.store.Create(ctx, store.CollectionServices, encodeService(def))
			return err
		},
		rollback: func(s *State) { s.dropService(def.ID) },
	})
	e.mu.Unlock()
	return def, res, nil
}

// RemoveService deletes an editable service and the configs that refer to
// it. Sales already recorded keep their label.
func (e *Engine) RemoveService(ctx context.Context, id string) (*Result, error) {
	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}
	svc, ok := e.state.Service(id)
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, id)
	}
	if !svc.IsEditable {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrServiceLocked, id)
	}

	seed := e.seedCatalogStep()
	snapshot := e.state.serviceSnapshot(id)
	e.state.dropService(id)

	res := e.dispatch("remove_service",
		seed,
		step{
			name: "delete service",
			write: func(ctx context.Context) error {
				return e.store.Delete(ctx, store.CollectionServices, store.ByID(id))
			},
			rollback: func(s *State) { s.restoreService(snapshot) },
		},
		step{
			name: "delete service configs",
			write: func(ctx context.Context) error {
				return e.store.Delete(ctx, store.CollectionConfigs, store.Where(store.Filter{fieldServiceID: id}))
			},
		},
	)
	e.mu.Unlock()
	return res, nil
}

// seedCatalogStep persists the built-in catalog before the first catalog
// edit, since an empty services collection reads back as the built-in
// catalog. Once the catalog lives in the store the step is a no-op.
// Callers hold mu.
func (e *Engine) seedCatalogStep() step {
	var entries []models.ServiceDefinition
	if e.state.catalogDefaulted {
		entries = append(entries, e.state.Catalog...)
		e.state.catalogDefaulted = false
	}
	return step{
		name: "seed catalog",
		write: func(ctx context.Context) error {
			for _, svc := range entries {
				if err := e.store.Upsert(ctx, store.CollectionServices, serviceKeyFields, encodeService(svc)); err != nil {
					return fmt.Errorf("seed %s: %w", svc.ID, err)
				}
			}
			return nil
		},
		rollback: func(s *State) {
			if len(entries) > 0 {
				s.catalogDefaulted = true
			}
		},
	}
}

func (s *State) nextDisplayOrder() int {
	next := 0
	for _, svc := range s.Catalog {
		if svc.DisplayOrder >= next {
			next = svc.DisplayOrder + 1
		}
	}
	return next
}

// applyService brings the mirrored configs of svc in line with the catalog
// entry and returns the ones whose active surcharge it switched off, since
// those rows must be rewritten.
func (s *State) applyService(svc models.ServiceDefinition) []models.ServiceConfig {
	var cleared []models.ServiceConfig
	for k, cfg := range s.Configs {
		if k.ServiceID != svc.ID {
			continue
		}
		next := svc.Effective(cfg)
		if cfg.SurchargeActive && !next.SurchargeActive {
			cleared = append(cleared, next)
		}
		s.Configs[k] = next
	}
	return cleared
}

func (s *State) replaceService(svc models.ServiceDefinition) {
	for i := range s.Catalog {
		if s.Catalog[i].ID == svc.ID {
			s.Catalog[i] = svc
			return
		}
	}
}

// serviceState is everything dropService removes, kept for rollback.
type serviceState struct {
	service models.ServiceDefinition
	index   int
	configs []models.ServiceConfig
}

func (s *State) serviceSnapshot(id string) serviceState {
	snap := serviceState{index: -1}
	for i, svc := range s.Catalog {
		if svc.ID == id {
			snap.service = svc
			snap.index = i
			break
		}
	}
	for k, cfg := range s.Configs {
		if k.ServiceID == id {
			snap.configs = append(snap.configs, cfg)
		}
	}
	return snap
}

func (s *State) dropService(id string) {
	for i, svc := range s.Catalog {
		if svc.ID == id {
			s.Catalog = append(s.Catalog[:i:i], s.Catalog[i+1:]...)
			break
		}
	}
	for k := range s.Configs {
		if k.ServiceID == id {
			delete(s.Configs, k)
		}
	}
}

func (s *State) restoreService(snap serviceState) {
	if snap.index < 0 {
		return
	}
	if _, ok := s.Service(snap.service.ID); ok {
		return
	}
	at := snap.index
	if at > len(s.Catalog) {
		at = len(s.Catalog)
	}
	s.Catalog = append(s.Catalog[:at:at], append([]models.ServiceDefinition{snap.service}, s.Catalog[at:]...)...)
	for _, cfg := range snap.configs {
		s.setConfig(cfg)
	}
}
