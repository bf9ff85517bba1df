package syncengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

var validate = validator.New()

// validTransitions lists the statuses an appointment may move to.
var validTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentScheduled: {models.AppointmentCompleted, models.AppointmentCancelled},
	models.AppointmentCompleted: {},
	models.AppointmentCancelled: {},
}

func canTransition(from, to models.AppointmentStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateAppointment books a new appointment in the scheduled state.
func (e *Engine) CreateAppointment(ctx context.Context, draft models.AppointmentDraft) (models.Appointment, *Result, error) {
	draft.ClientName = strings.TrimSpace(draft.ClientName)
	draft.ClientPhone = strings.TrimSpace(draft.ClientPhone)
	draft.ServiceType = strings.TrimSpace(draft.ServiceType)
	if err := validate.Struct(draft); err != nil {
		return models.Appointment{}, nil, fmt.Errorf("%w: %v", ErrInvalidAppointment, err)
	}
	if draft.ScheduledTime.IsZero() {
		return models.Appointment{}, nil, fmt.Errorf("%w: missing scheduled time", ErrInvalidAppointment)
	}

	if err := e.lockForMutation(ctx); err != nil {
		return models.Appointment{}, nil, err
	}
	if _, ok := e.state.Barber(draft.BarberID); !ok {
		e.mu.Unlock()
		return models.Appointment{}, nil, fmt.Errorf("%w: %s", ErrUnknownBarber, draft.BarberID)
	}

	appt := models.Appointment{
		ID:            uuid.NewString(),
		ClientName:    draft.ClientName,
		ClientPhone:   draft.ClientPhone,
		BarberID:      draft.BarberID,
		ServiceType:   draft.ServiceType,
		Duration:      draft.Duration,
		ScheduledTime: draft.ScheduledTime,
		Status:        models.AppointmentScheduled,
	}
	e.state.Appointments = append(e.state.Appointments, appt)

	local := appt.ID
	res := e.dispatch("create_appointment", step{
		name: "create appointment",
		write: func(ctx context.Context) error {
			created, err := e.store.Create(ctx, store.CollectionAppointments, encodeAppointment(appt))
			if err != nil {
				return err
			}
			if id := created.ID(); id != "" && id != local {
				e.remapAppointmentID(local, id)
			}
			return nil
		},
		rollback: func(s *State) { s.dropAppointment(local) },
	})
	e.mu.Unlock()
	return appt, res, nil
}

// UpdateAppointment applies the fields present in patch, locally and
// remotely. Absent fields are neither changed nor sent.
func (e *Engine) UpdateAppointment(ctx context.Context, id string, patch models.AppointmentPatch) (*Result, error) {
	return e.updateAppointment(ctx, "update_appointment", id, patch)
}

// CancelAppointment moves a scheduled appointment to cancelled.
func (e *Engine) CancelAppointment(ctx context.Context, id string) (*Result, error) {
	status := models.AppointmentCancelled
	return e.updateAppointment(ctx, "cancel_appointment", id, models.AppointmentPatch{Status: &status})
}

// CompleteAppointment moves a scheduled appointment to completed.
func (e *Engine) CompleteAppointment(ctx context.Context, id string) (*Result, error) {
	status := models.AppointmentCompleted
	return e.updateAppointment(ctx, "complete_appointment", id, models.AppointmentPatch{Status: &status})
}

func (e *Engine) updateAppointment(ctx context.Context, op, id string, patch models.AppointmentPatch) (*Result, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidAppointment)
	}
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}

	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}
	prev, ok := e.state.Appointment(id)
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
	}
	if patch.BarberID != nil {
		if _, ok := e.state.Barber(*patch.BarberID); !ok {
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrUnknownBarber, *patch.BarberID)
		}
	}
	if patch.Status != nil && *patch.Status != prev.Status && !canTransition(prev.Status, *patch.Status) {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev.Status, *patch.Status)
	}

	next := patch.Apply(prev)
	e.state.replaceAppointment(next)

	row := encodeAppointmentPatch(patch)
	res := e.dispatch(op, step{
		name: "update appointment",
		write: func(ctx context.Context) error {
			return e.store.Update(ctx, store.CollectionAppointments, id, row)
		},
		rollback: func(s *State) { s.replaceAppointment(prev) },
	})
	e.mu.Unlock()
	return res, nil
}

// validatePatch trims the text fields of patch in place and rejects blank
// or out-of-range values.
func validatePatch(patch *models.AppointmentPatch) error {
	for _, field := range []**string{&patch.ClientName, &patch.ClientPhone, &patch.ServiceType} {
		if *field == nil {
			continue
		}
		trimmed := strings.TrimSpace(**field)
		if trimmed == "" {
			return fmt.Errorf("%w: blank field", ErrInvalidAppointment)
		}
		*field = &trimmed
	}
	if patch.Duration != nil && !patch.Duration.Valid() {
		return fmt.Errorf("%w: duration %d", ErrInvalidAppointment, *patch.Duration)
	}
	if patch.ScheduledTime != nil && patch.ScheduledTime.IsZero() {
		return fmt.Errorf("%w: missing scheduled time", ErrInvalidAppointment)
	}
	if patch.Status != nil {
		if _, known := validTransitions[*patch.Status]; !known {
			return fmt.Errorf("%w: status %q", ErrInvalidAppointment, *patch.Status)
		}
	}
	return nil
}

// DeleteAppointment removes an appointment whatever its status.
func (e *Engine) DeleteAppointment(ctx context.Context, id string) (*Result, error) {
	if err := e.lockForMutation(ctx); err != nil {
		return nil, err
	}
	idx := -1
	for i, a := range e.state.Appointments {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
	}
	appt := e.state.Appointments[idx]
	e.state.dropAppointment(id)

	res := e.dispatch("delete_appointment", step{
		name: "delete appointment",
		write: func(ctx context.Context) error {
			return e.store.Delete(ctx, store.CollectionAppointments, store.ByID(id))
		},
		rollback: func(s *State) { s.insertAppointment(appt, idx) },
	})
	e.mu.Unlock()
	return res, nil
}

// insertAppointment puts an appointment back at its former position unless
// it is already mirrored.
func (s *State) insertAppointment(appt models.Appointment, at int) {
	if _, ok := s.Appointment(appt.ID); ok {
		return
	}
	if at < 0 || at > len(s.Appointments) {
		at = len(s.Appointments)
	}
	s.Appointments = append(s.Appointments[:at:at], append([]models.Appointment{appt}, s.Appointments[at:]...)...)
}

func (e *Engine) remapAppointmentID(local, remote string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.state.Appointments {
		if e.state.Appointments[i].ID == local {
			e.state.Appointments[i].ID = remote
			return
		}
	}
}

func (s *State) dropAppointment(id string) {
	for i, a := range s.Appointments {
		if a.ID == id {
			s.Appointments = append(s.Appointments[:i:i], s.Appointments[i+1:]...)
			return
		}
	}
}
