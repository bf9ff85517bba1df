package syncengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// UpsertBarber creates a barber when the id is empty or unknown and
// otherwise replaces its name and commission rate. The stored barber is
// returned with its provisional id.
func (e *Engine) UpsertBarber(ctx context.Context, b models.Barber) (models.Barber, *Result, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return models.Barber{}, nil, ErrInvalidName
	}
	if !validRate(b.CommissionRate) {
		return models.Barber{}, nil, fmt.Errorf("%w: %v", ErrInvalidCommission, b.CommissionRate)
	}

	if err := e.lockForMutation(ctx); err != nil {
		return models.Barber{}, nil, err
	}

	if prev, ok := e.state.Barber(b.ID); ok && b.ID != "" {
		e.state.replaceBarber(b)

		patch := encodeBarber(b)
		delete(patch, fieldID)
		res := e.dispatch("update_barber", step{
			name: "update barber",
			write: func(ctx context.Context) error {
				return e.store.Update(ctx, store.CollectionBarbers, b.ID, patch)
			},
			rollback: func(s *State) { s.replaceBarber(prev) },
		})
		e.mu.Unlock()
		return b, res, nil
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	e.state.Barbers = append(e.state.Barbers, b)
	for _, svc := range e.state.Catalog {
		e.state.setConfig(models.DefaultConfig(b.ID, svc))
	}

	local := b.ID
	res := e.dispatch("create_barber", step{
		name: "create barber",
		write: func(ctx context.Context) error {
			created, err := e.store.Create(ctx, store.CollectionBarbers, encodeBarber(b))
			if err != nil {
				return err
			}
			if id := created.ID(); id != "" && id != local {
				e.remapBarberID(local, id)
			}
			return nil
		},
		rollback: func(s *State) { s.dropBarber(local) },
	})
	e.mu.Unlock()
	return b, res, nil
}

// RemoveBarber deletes a barber and its configs. The shop always keeps at
// least one barber. confirm, when set, is asked before anything changes.
func (e *Engine) RemoveBarber(ctx context.Context, id string, confirm func(models.Barber) bool) (*Result, error) {
	e.mu.RLock()
	barber, ok := e.state.Barber(id)
	count := len(e.state.Barbers)
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBarber, id)
	}
	if count <= 1 {
		return nil, ErrLastBarber
	}
	if confirm != nil && !confirm(barber) {
		return nil, ErrNotConfirmed
	}

	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}
	// The mirror may have moved while confirm was pending.
	if _, ok := e.state.Barber(id); !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownBarber, id)
	}
	if len(e.state.Barbers) <= 1 {
		e.mu.Unlock()
		return nil, ErrLastBarber
	}

	snapshot := e.state.barberSnapshot(id)
	e.state.dropBarber(id)

	res := e.dispatch("remove_barber",
		step{
			name: "delete barber",
			write: func(ctx context.Context) error {
				return e.store.Delete(ctx, store.CollectionBarbers, store.ByID(id))
			},
			rollback: func(s *State) { s.restoreBarber(snapshot) },
		},
		step{
			name: "delete barber configs",
			write: func(ctx context.Context) error {
				return e.store.Delete(ctx, store.CollectionConfigs, store.Where(store.Filter{fieldBarberID: id}))
			},
		},
	)
	e.mu.Unlock()
	return res, nil
}

// UpdateCommissionRate sets a barber's commission percentage.
func (e *Engine) UpdateCommissionRate(ctx context.Context, id string, rate float64) (*Result, error) {
	if !validRate(rate) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommission, rate)
	}
	return e.patchBarber(ctx, "update_commission_rate", id, store.Row{fieldCommissionRate: rate}, func(b *models.Barber) {
		b.CommissionRate = rate
	})
}

// RenameBarber changes a barber's display name.
func (e *Engine) RenameBarber(ctx context.Context, id, name string) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	return e.patchBarber(ctx, "rename_barber", id, store.Row{fieldName: name}, func(b *models.Barber) {
		b.Name = name
	})
}

func (e *Engine) patchBarber(ctx context.Context, op, id string, patch store.Row, apply func(*models.Barber)) (*Result, error) {
	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}
	prev, ok := e.state.Barber(id)
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownBarber, id)
	}
	next := prev
	apply(&next)
	e.state.replaceBarber(next)

	res := e.dispatch(op, step{
		name: "update barber",
		write: func(ctx context.Context) error {
			return e.store.Update(ctx, store.CollectionBarbers, id, patch)
		},
		rollback: func(s *State) { s.replaceBarber(prev) },
	})
	e.mu.Unlock()
	return res, nil
}

func (e *Engine) remapBarberID(local, remote string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.state.barberSnapshot(local)
	if snap.index < 0 {
		return
	}
	e.state.dropBarber(local)
	snap.barber.ID = remote
	for k, cfg := range snap.configs {
		cfg.BarberID = remote
		snap.configs[k] = cfg
	}
	e.state.restoreBarber(snap)
}

func validRate(rate float64) bool {
	return rate >= 0 && rate <= 100
}

// barberState is everything dropBarber removes, kept for rollback.
type barberState struct {
	barber  models.Barber
	index   int
	configs []models.ServiceConfig
}

func (s *State) barberSnapshot(id string) barberState {
	snap := barberState{index: -1}
	for i, b := range s.Barbers {
		if b.ID == id {
			snap.barber = b
			snap.index = i
			break
		}
	}
	for k, cfg := range s.Configs {
		if k.BarberID == id {
			snap.configs = append(snap.configs, cfg)
		}
	}
	return snap
}

func (s *State) dropBarber(id string) {
	for i, b := range s.Barbers {
		if b.ID == id {
			s.Barbers = append(s.Barbers[:i:i], s.Barbers[i+1:]...)
			break
		}
	}
	for k := range s.Configs {
		if k.BarberID == id {
			delete(s.Configs, k)
		}
	}
}

// restoreBarber puts a dropped barber back. A barber that is already
// mirrored, for instance after a refresh landed first, is left alone.
func (s *State) restoreBarber(snap barberState) {
	if snap.index < 0 {
		return
	}
	if _, ok := s.Barber(snap.barber.ID); ok {
		return
	}
	at := snap.index
	if at > len(s.Barbers) {
		at = len(s.Barbers)
	}
	s.Barbers = append(s.Barbers[:at:at], append([]models.Barber{snap.barber}, s.Barbers[at:]...)...)
	for _, cfg := range snap.configs {
		s.setConfig(cfg)
	}
}
