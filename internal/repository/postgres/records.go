package postgres

import (
	"time"

	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// BarberRecord is the barbers table.
type BarberRecord struct {
	ID             string  `gorm:"primaryKey;type:text"`
	Name           string  `gorm:"type:text;not null"`
	CommissionRate float64 `gorm:"type:double precision;not null"`
}

func (BarberRecord) TableName() string { return store.CollectionBarbers }

// HistoryRecord is one recorded sale. Seq is assigned by the database on
// insert and gives the ledger its order.
type HistoryRecord struct {
	ID            string    `gorm:"primaryKey;type:text"`
	Seq           int64     `gorm:"autoIncrement;not null;index"`
	BarberID      string    `gorm:"type:text;index"`
	ServiceName   string    `gorm:"type:text"`
	Price         float64   `gorm:"type:double precision"`
	Timestamp     time.Time `gorm:"type:timestamptz;index"`
	IsNavalhado   bool
	PaymentMethod string `gorm:"type:text"`
}

func (HistoryRecord) TableName() string { return store.CollectionHistory }

// ConfigRecord is the per barber and service pricing state.
type ConfigRecord struct {
	ID                    string  `gorm:"primaryKey;type:text"`
	BarberID              string  `gorm:"type:text;uniqueIndex:idx_config_barber_service"`
	ServiceID             string  `gorm:"type:text;uniqueIndex:idx_config_barber_service"`
	IsNavalhado           bool
	CurrentPrice          float64 `gorm:"type:double precision"`
	SelectedPaymentMethod string  `gorm:"type:text"`
}

func (ConfigRecord) TableName() string { return store.CollectionConfigs }

// ServiceRecord is a catalog entry.
type ServiceRecord struct {
	ID             string  `gorm:"primaryKey;type:text"`
	Label          string  `gorm:"type:text"`
	Price          float64 `gorm:"type:double precision"`
	AllowNavalhado bool
	IsEditable     bool
	DisplayOrder   int
}

func (ServiceRecord) TableName() string { return store.CollectionServices }

// AppointmentRecord is a booked appointment.
type AppointmentRecord struct {
	ID            string `gorm:"primaryKey;type:text"`
	ClientName    string `gorm:"type:text"`
	ClientPhone   string `gorm:"type:text"`
	BarberID      string `gorm:"type:text;index"`
	ServiceType   string `gorm:"type:text"`
	Duration      int
	ScheduledTime time.Time `gorm:"type:timestamptz;index"`
	Status        string    `gorm:"type:text"`
}

func (AppointmentRecord) TableName() string { return store.CollectionAppointments }

// modelFor returns a fresh pointer to the record type backing collection.
func modelFor(collection string) (any, error) {
	switch collection {
	case store.CollectionBarbers:
		return &BarberRecord{}, nil
	case store.CollectionHistory:
		return &HistoryRecord{}, nil
	case store.CollectionConfigs:
		return &ConfigRecord{}, nil
	case store.CollectionServices:
		return &ServiceRecord{}, nil
	case store.CollectionAppointments:
		return &AppointmentRecord{}, nil
	}
	return nil, store.ValidateCollection(collection)
}

// defaultOrder is the column a collection is listed by when no sort field
// is requested.
var defaultOrder = map[string]string{
	store.CollectionHistory: "seq",
}

// timeColumns are stored as timestamptz; rows carry them as RFC 3339 text.
var timeColumns = map[string]struct{}{
	"timestamp":      {},
	"scheduled_time": {},
}
