package syncengine

import (
	"time"

	"github.com/mamadbah2/barberdash/internal/domain/models"
)

// State is the client-side mirror of the record store.
type State struct {
	Barbers      []models.Barber
	History      []models.HistoryItem
	Catalog      []models.ServiceDefinition
	Appointments []models.Appointment

	// Configs holds one entry for every barber x catalog service, defaults
	// included.
	Configs map[models.ConfigKey]models.ServiceConfig

	// catalogDefaulted is set while Catalog is the built-in fallback rather
	// than rows read from the store.
	catalogDefaulted bool
}

func newState() State {
	return State{
		Catalog:          models.DefaultCatalog(),
		Configs:          map[models.ConfigKey]models.ServiceConfig{},
		catalogDefaulted: true,
	}
}

// reconstruct derives the config view from barbers, catalog and the stored
// config rows. Rows for unknown barbers or services are dropped from the view,
// and the catalog entry has the last word on price and surcharge.
func reconstruct(barbers []models.Barber, catalog []models.ServiceDefinition, rows []models.ServiceConfig) map[models.ConfigKey]models.ServiceConfig {
	byKey := make(map[models.ConfigKey]models.ServiceConfig, len(rows))
	for _, row := range rows {
		byKey[row.Key()] = row
	}

	view := make(map[models.ConfigKey]models.ServiceConfig, len(barbers)*len(catalog))
	for _, b := range barbers {
		for _, svc := range catalog {
			key := models.ConfigKey{BarberID: b.ID, ServiceID: svc.ID}
			if row, ok := byKey[key]; ok {
				row.SelectedPaymentMethod = row.SelectedPaymentMethod.OrDefault()
				view[key] = svc.Effective(row)
				continue
			}
			view[key] = models.DefaultConfig(b.ID, svc)
		}
	}
	return view
}

// clone returns a deep copy safe to hand to readers.
func (s State) clone() State {
	out := State{
		Barbers:      append([]models.Barber(nil), s.Barbers...),
		History:      append([]models.HistoryItem(nil), s.History...),
		Catalog:      append([]models.ServiceDefinition(nil), s.Catalog...),
		Appointments: append([]models.Appointment(nil), s.Appointments...),
		Configs:      make(map[models.ConfigKey]models.ServiceConfig, len(s.Configs)),

		catalogDefaulted: s.catalogDefaulted,
	}
	for k, v := range s.Configs {
		out.Configs[k] = v
	}
	return out
}

// Barber looks a barber up by id.
func (s State) Barber(id string) (models.Barber, bool) {
	for _, b := range s.Barbers {
		if b.ID == id {
			return b, true
		}
	}
	return models.Barber{}, false
}

// Service looks a catalog entry up by id.
func (s State) Service(id string) (models.ServiceDefinition, bool) {
	for _, svc := range s.Catalog {
		if svc.ID == id {
			return svc, true
		}
	}
	return models.ServiceDefinition{}, false
}

// Appointment looks an appointment up by id.
func (s State) Appointment(id string) (models.Appointment, bool) {
	for _, a := range s.Appointments {
		if a.ID == id {
			return a, true
		}
	}
	return models.Appointment{}, false
}

// Config returns the effective config of a pair, falling back to defaults.
func (s State) Config(barberID string, svc models.ServiceDefinition) models.ServiceConfig {
	if cfg, ok := s.Configs[models.ConfigKey{BarberID: barberID, ServiceID: svc.ID}]; ok {
		return svc.Effective(cfg)
	}
	return models.DefaultConfig(barberID, svc)
}

// ConfigsFor lists a barber's configs in catalog order.
func (s State) ConfigsFor(barberID string) []models.ServiceConfig {
	out := make([]models.ServiceConfig, 0, len(s.Catalog))
	for _, svc := range s.Catalog {
		out = append(out, s.Config(barberID, svc))
	}
	return out
}

// HistoryFor returns a barber's sales on the local day of day, in ledger order.
func (s State) HistoryFor(barberID string, day time.Time, loc *time.Location) []models.HistoryItem {
	var out []models.HistoryItem
	for _, h := range s.History {
		if h.BarberID == barberID && models.SameDay(h.Timestamp, day, loc) {
			out = append(out, h)
		}
	}
	return out
}

func (s *State) setConfig(cfg models.ServiceConfig) {
	s.Configs[cfg.Key()] = cfg
}

func (s *State) removeHistory(id string) (models.HistoryItem, int, bool) {
	for i, h := range s.History {
		if h.ID == id {
			s.History = append(s.History[:i:i], s.History[i+1:]...)
			return h, i, true
		}
	}
	return models.HistoryItem{}, -1, false
}

// insertHistory puts an item back at its former position unless it is
// already mirrored.
func (s *State) insertHistory(item models.HistoryItem, at int) {
	for _, h := range s.History {
		if h.ID == item.ID {
			return
		}
	}
	if at < 0 || at > len(s.History) {
		at = len(s.History)
	}
	s.History = append(s.History[:at:at], append([]models.HistoryItem{item}, s.History[at:]...)...)
}

func (s *State) replaceBarber(b models.Barber) bool {
	for i := range s.Barbers {
		if s.Barbers[i].ID == b.ID {
			s.Barbers[i] = b
			return true
		}
	}
	return false
}

func (s *State) replaceAppointment(a models.Appointment) bool {
	for i := range s.Appointments {
		if s.Appointments[i].ID == a.ID {
			s.Appointments[i] = a
			return true
		}
	}
	return false
}
