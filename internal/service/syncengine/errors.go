package syncengine

import "errors"

// Validation errors are returned before any local or remote change.
var (
	ErrUnknownBarber        = errors.New("unknown barber")
	ErrUnknownService       = errors.New("unknown service")
	ErrUnknownHistoryItem   = errors.New("unknown history item")
	ErrUnknownAppointment   = errors.New("unknown appointment")
	ErrLastBarber           = errors.New("cannot remove the last barber")
	ErrNotConfirmed         = errors.New("operation not confirmed")
	ErrInvalidCommission    = errors.New("commission rate must be between 0 and 100")
	ErrInvalidName          = errors.New("name must not be blank")
	ErrInvalidPrice         = errors.New("price must not be negative")
	ErrSurchargeNotAllowed  = errors.New("service does not allow a surcharge")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrServiceLocked        = errors.New("service is not editable")
	ErrServiceExists        = errors.New("service already exists")
	ErrInvalidAppointment   = errors.New("invalid appointment")
	ErrInvalidTransition    = errors.New("invalid appointment status transition")
	ErrEngineClosed         = errors.New("sync engine closed")
)
