package models

import "time"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// ServiceDuration is the booked length in minutes.
type ServiceDuration int

const (
	Duration15 ServiceDuration = 15
	Duration30 ServiceDuration = 30
	Duration45 ServiceDuration = 45
	Duration60 ServiceDuration = 60
)

// Valid reports whether d is one of the bookable lengths.
func (d ServiceDuration) Valid() bool {
	switch d {
	case Duration15, Duration30, Duration45, Duration60:
		return true
	}
	return false
}

// Minutes returns the duration as a time.Duration.
func (d ServiceDuration) Minutes() time.Duration {
	return time.Duration(d) * time.Minute
}

// Appointment is a booked slot on the calendar.
type Appointment struct {
	ID            string            `json:"id"`
	ClientName    string            `json:"clientName"`
	ClientPhone   string            `json:"clientPhone"`
	BarberID      string            `json:"barberId"`
	ServiceType   string            `json:"serviceType"`
	Duration      ServiceDuration   `json:"duration"`
	ScheduledTime time.Time         `json:"scheduledTime"`
	Status        AppointmentStatus `json:"status"`
}

// EndTime returns when the appointment is expected to finish.
func (a Appointment) EndTime() time.Time {
	return a.ScheduledTime.Add(a.Duration.Minutes())
}

// AppointmentDraft carries the operator input for a new appointment.
type AppointmentDraft struct {
	ClientName    string          `json:"clientName" validate:"required"`
	ClientPhone   string          `json:"clientPhone" validate:"required"`
	BarberID      string          `json:"barberId" validate:"required"`
	ServiceType   string          `json:"serviceType" validate:"required"`
	Duration      ServiceDuration `json:"duration" validate:"oneof=15 30 45 60"`
	ScheduledTime time.Time       `json:"scheduledTime" validate:"required"`
}

// AppointmentPatch is a partial update: nil fields are left untouched.
type AppointmentPatch struct {
	ClientName    *string            `json:"clientName,omitempty"`
	ClientPhone   *string            `json:"clientPhone,omitempty"`
	BarberID      *string            `json:"barberId,omitempty"`
	ServiceType   *string            `json:"serviceType,omitempty"`
	Duration      *ServiceDuration   `json:"duration,omitempty"`
	ScheduledTime *time.Time         `json:"scheduledTime,omitempty"`
	Status        *AppointmentStatus `json:"status,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p AppointmentPatch) Empty() bool {
	return p.ClientName == nil && p.ClientPhone == nil && p.BarberID == nil &&
		p.ServiceType == nil && p.Duration == nil && p.ScheduledTime == nil && p.Status == nil
}

// Apply returns a copy of a with the present patch fields set.
func (p AppointmentPatch) Apply(a Appointment) Appointment {
	if p.ClientName != nil {
		a.ClientName = *p.ClientName
	}
	if p.ClientPhone != nil {
		a.ClientPhone = *p.ClientPhone
	}
	if p.BarberID != nil {
		a.BarberID = *p.BarberID
	}
	if p.ServiceType != nil {
		a.ServiceType = *p.ServiceType
	}
	if p.Duration != nil {
		a.Duration = *p.Duration
	}
	if p.ScheduledTime != nil {
		a.ScheduledTime = *p.ScheduledTime
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	return a
}
