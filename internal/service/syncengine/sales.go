package syncengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/metrics"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// RecordSale appends a sale of serviceID for barberID at the current price,
// adding the surcharge when it is active, then clears the surcharge. The
// selected payment method is kept for the next sale.
func (e *Engine) RecordSale(ctx context.Context, barberID, serviceID string) (*Result, error) {
	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}

	barber, svc, err := e.lookupPair(barberID, serviceID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	prev := e.state.Config(barber.ID, svc)
	price := prev.CurrentPrice
	if prev.SurchargeActive {
		price += e.surcharge
	}

	item := models.HistoryItem{
		ID:               uuid.NewString(),
		BarberID:         barber.ID,
		ServiceLabel:     svc.Label,
		Price:            price,
		Timestamp:        e.saleTimestamp(),
		SurchargeApplied: prev.SurchargeActive,
		PaymentMethod:    prev.SelectedPaymentMethod.OrDefault(),
	}
	next := prev
	next.SurchargeActive = false

	e.state.History = append(e.state.History, item)
	e.state.setConfig(next)

	res := e.dispatch("record_sale",
		step{
			name: "create history",
			write: func(ctx context.Context) error {
				created, err := e.store.Create(ctx, store.CollectionHistory, encodeHistory(item))
				if err != nil {
					return err
				}
				metrics.SalesRecorded.Inc()
				if id := created.ID(); id != "" && id != item.ID {
					e.remapHistoryID(item.ID, id)
				}
				return nil
			},
			rollback: func(s *State) { s.removeHistory(item.ID) },
		},
		step{
			name:     "upsert config",
			write:    e.upsertConfig(next),
			rollback: func(s *State) { s.setConfig(prev) },
		},
	)
	e.mu.Unlock()
	return res, nil
}

// saleTimestamp stamps sales with the current instant when the dashboard is
// on today and with the selected day's midnight otherwise. Callers hold mu.
func (e *Engine) saleTimestamp() time.Time {
	now := e.now()
	if models.SameDay(now, e.selectedDay, e.loc) {
		return now
	}
	return e.selectedDay
}

func (e *Engine) remapHistoryID(local, remote string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.state.History {
		if e.state.History[i].ID == local {
			e.state.History[i].ID = remote
			return
		}
	}
}

// UndoLastSale removes the most recent sale of serviceID by barberID on the
// selected day. Without a match it resolves immediately and changes nothing.
func (e *Engine) UndoLastSale(ctx context.Context, barberID, serviceID string) (*Result, error) {
	const op = "undo_last_sale"
	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}

	_, svc, err := e.lookupPair(barberID, serviceID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	var target *models.HistoryItem
	for i := len(e.state.History) - 1; i >= 0; i-- {
		h := e.state.History[i]
		if h.BarberID == barberID && h.ServiceLabel == svc.Label && models.SameDay(h.Timestamp, e.selectedDay, e.loc) {
			target = &h
			break
		}
	}
	if target == nil {
		e.mu.Unlock()
		return resolved(op, nil), nil
	}

	item, idx, _ := e.state.removeHistory(target.ID)
	res := e.dispatch(op, e.deleteHistoryStep(item, idx))
	e.mu.Unlock()
	return res, nil
}

// RemoveHistoryItem deletes a single sale by id.
func (e *Engine) RemoveHistoryItem(ctx context.Context, id string) (*Result, error) {
	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}
	item, idx, ok := e.state.removeHistory(id)
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownHistoryItem, id)
	}
	res := e.dispatch("remove_history_item", e.deleteHistoryStep(item, idx))
	e.mu.Unlock()
	return res, nil
}

func (e *Engine) deleteHistoryStep(item models.HistoryItem, idx int) step {
	return step{
		name: "delete history",
		write: func(ctx context.Context) error {
			return e.store.Delete(ctx, store.CollectionHistory, store.ByID(item.ID))
		},
		rollback: func(s *State) { s.insertHistory(item, idx) },
	}
}

// ClearHistory deletes every sale of barberID on the local day of day in a
// single batched delete.
func (e *Engine) ClearHistory(ctx context.Context, barberID string, day time.Time) (*Result, error) {
	const op = "clear_history"
	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}
	if _, ok := e.state.Barber(barberID); !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownBarber, barberID)
	}

	type removed struct {
		item models.HistoryItem
		idx  int
	}
	var (
		gone []removed
		kept = make([]models.HistoryItem, 0, len(e.state.History))
		ids  []string
	)
	for i, h := range e.state.History {
		if h.BarberID == barberID && models.SameDay(h.Timestamp, day, e.loc) {
			gone = append(gone, removed{item: h, idx: i})
			ids = append(ids, h.ID)
			continue
		}
		kept = append(kept, h)
	}
	if len(gone) == 0 {
		e.mu.Unlock()
		return resolved(op, nil), nil
	}
	e.state.History = kept
	e.logger.Info("clearing history", zap.String("barber_id", barberID), zap.Int("items", len(ids)))

	res := e.dispatch(op, step{
		name: "delete history batch",
		write: func(ctx context.Context) error {
			return e.store.Delete(ctx, store.CollectionHistory, store.ByID(ids...))
		},
		rollback: func(s *State) {
			for _, r := range gone {
				s.insertHistory(r.item, r.idx)
			}
		},
	})
	e.mu.Unlock()
	return res, nil
}

// SetSurcharge toggles the surcharge of a pair.
func (e *Engine) SetSurcharge(ctx context.Context, barberID, serviceID string, active bool) (*Result, error) {
	return e.updateConfig(ctx, "set_surcharge", barberID, serviceID, func(svc models.ServiceDefinition, cfg *models.ServiceConfig) error {
		if active && !svc.AllowsSurcharge {
			return fmt.Errorf("%w: %s", ErrSurchargeNotAllowed, svc.ID)
		}
		cfg.SurchargeActive = active
		return nil
	})
}

// SetPrice overrides the current price of a pair. Only editable services
// accept a price from the operator.
func (e *Engine) SetPrice(ctx context.Context, barberID, serviceID string, price float64) (*Result, error) {
	return e.updateConfig(ctx, "set_price", barberID, serviceID, func(svc models.ServiceDefinition, cfg *models.ServiceConfig) error {
		if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			return fmt.Errorf("%w: %v", ErrInvalidPrice, price)
		}
		if !svc.IsEditable {
			return fmt.Errorf("%w: %s", ErrServiceLocked, svc.ID)
		}
		cfg.CurrentPrice = price
		return nil
	})
}

// SetPaymentMethod selects the payment method used by the next sales of a pair.
func (e *Engine) SetPaymentMethod(ctx context.Context, barberID, serviceID string, method models.PaymentMethod) (*Result, error) {
	return e.updateConfig(ctx, "set_payment_method", barberID, serviceID, func(_ models.ServiceDefinition, cfg *models.ServiceConfig) error {
		if !method.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
		}
		cfg.SelectedPaymentMethod = method
		return nil
	})
}

// updateConfig changes one field of a pair and upserts the whole row, the
// untouched fields carrying their current effective values.
func (e *Engine) updateConfig(ctx context.Context, op, barberID, serviceID string, change func(models.ServiceDefinition, *models.ServiceConfig) error) (*Result, error) {
	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}

	barber, svc, err := e.lookupPair(barberID, serviceID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	prev := e.state.Config(barber.ID, svc)
	next := prev
	if err := change(svc, &next); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.state.setConfig(next)

	res := e.dispatch(op, step{
		name:     "upsert config",
		write:    e.upsertConfig(next),
		rollback: func(s *State) { s.setConfig(prev) },
	})
	e.mu.Unlock()
	return res, nil
}

func (e *Engine) upsertConfig(cfg models.ServiceConfig) func(context.Context) error {
	return func(ctx context.Context) error {
		return e.store.Upsert(ctx, store.CollectionConfigs, configKeyFields, encodeConfig(cfg))
	}
}

// lookupPair resolves a barber and a catalog service. Callers hold mu.
func (e *Engine) lookupPair(barberID, serviceID string) (models.Barber, models.ServiceDefinition, error) {
	barber, ok := e.state.Barber(barberID)
	if !ok {
		return models.Barber{}, models.ServiceDefinition{}, fmt.Errorf("%w: %s", ErrUnknownBarber, barberID)
	}
	svc, ok := e.state.Service(serviceID)
	if !ok {
		return models.Barber{}, models.ServiceDefinition{}, fmt.Errorf("%w: %s", ErrUnknownService, serviceID)
	}
	return barber, svc, nil
}
