package syncengine

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// Wire field names. The store speaks snake_case; the mirror uses models.
const (
	fieldID                    = "id"
	fieldName                  = "name"
	fieldCommissionRate        = "commission_rate"
	fieldBarberID              = "barber_id"
	fieldServiceID             = "service_id"
	fieldServiceName           = "service_name"
	fieldPrice                 = "price"
	fieldTimestamp             = "timestamp"
	fieldNavalhado             = "is_navalhado"
	fieldPaymentMethod         = "payment_method"
	fieldCurrentPrice          = "current_price"
	fieldSelectedPaymentMethod = "selected_payment_method"
	fieldLabel                 = "label"
	fieldAllowNavalhado        = "allow_navalhado"
	fieldIsEditable            = "is_editable"
	fieldDisplayOrder          = "display_order"
	fieldClientName            = "client_name"
	fieldClientPhone           = "client_phone"
	fieldServiceType           = "service_type"
	fieldDuration              = "duration"
	fieldScheduledTime         = "scheduled_time"
	fieldStatus                = "status"
)

// configKeyFields is the natural key of barber_service_configs.
var configKeyFields = []string{fieldBarberID, fieldServiceID}

var errMissingID = errors.New("row has no id")

func encodeBarber(b models.Barber) store.Row {
	row := store.Row{
		fieldName:           b.Name,
		fieldCommissionRate: b.CommissionRate,
	}
	if b.ID != "" {
		row[fieldID] = b.ID
	}
	return row
}

func decodeBarber(row store.Row) (models.Barber, error) {
	if row.ID() == "" {
		return models.Barber{}, errMissingID
	}
	rate, err := asFloat(row[fieldCommissionRate])
	if err != nil {
		return models.Barber{}, fmt.Errorf("commission_rate: %w", err)
	}
	return models.Barber{
		ID:             row.ID(),
		Name:           asString(row[fieldName]),
		CommissionRate: rate,
	}, nil
}

func encodeHistory(h models.HistoryItem) store.Row {
	return store.Row{
		fieldID:            h.ID,
		fieldBarberID:      h.BarberID,
		fieldServiceName:   h.ServiceLabel,
		fieldPrice:         h.Price,
		fieldTimestamp:     encodeTime(h.Timestamp),
		fieldNavalhado:     h.SurchargeApplied,
		fieldPaymentMethod: string(h.PaymentMethod),
	}
}

func decodeHistory(row store.Row) (models.HistoryItem, error) {
	if row.ID() == "" {
		return models.HistoryItem{}, errMissingID
	}
	price, err := asFloat(row[fieldPrice])
	if err != nil {
		return models.HistoryItem{}, fmt.Errorf("price: %w", err)
	}
	ts, err := asTime(row[fieldTimestamp])
	if err != nil {
		return models.HistoryItem{}, fmt.Errorf("timestamp: %w", err)
	}
	return models.HistoryItem{
		ID:               row.ID(),
		BarberID:         asString(row[fieldBarberID]),
		ServiceLabel:     asString(row[fieldServiceName]),
		Price:            price,
		Timestamp:        ts,
		SurchargeApplied: asBool(row[fieldNavalhado]),
		PaymentMethod:    models.PaymentMethod(asString(row[fieldPaymentMethod])).OrDefault(),
	}, nil
}

func encodeConfig(c models.ServiceConfig) store.Row {
	return store.Row{
		fieldBarberID:              c.BarberID,
		fieldServiceID:             c.ServiceID,
		fieldNavalhado:             c.SurchargeActive,
		fieldCurrentPrice:          c.CurrentPrice,
		fieldSelectedPaymentMethod: string(c.SelectedPaymentMethod.OrDefault()),
	}
}

func decodeConfig(row store.Row) (models.ServiceConfig, error) {
	barberID := asString(row[fieldBarberID])
	serviceID := asString(row[fieldServiceID])
	if barberID == "" || serviceID == "" {
		return models.ServiceConfig{}, errors.New("config row without barber_id/service_id")
	}
	price, err := asFloat(row[fieldCurrentPrice])
	if err != nil {
		return models.ServiceConfig{}, fmt.Errorf("current_price: %w", err)
	}
	return models.ServiceConfig{
		BarberID:              barberID,
		ServiceID:             serviceID,
		CurrentPrice:          price,
		SurchargeActive:       asBool(row[fieldNavalhado]),
		SelectedPaymentMethod: models.PaymentMethod(asString(row[fieldSelectedPaymentMethod])).OrDefault(),
	}, nil
}

func encodeService(s models.ServiceDefinition) store.Row {
	return store.Row{
		fieldID:             s.ID,
		fieldLabel:          s.Label,
		fieldPrice:          s.BasePrice,
		fieldAllowNavalhado: s.AllowsSurcharge,
		fieldIsEditable:     s.IsEditable,
		fieldDisplayOrder:   s.DisplayOrder,
	}
}

func decodeService(row store.Row) (models.ServiceDefinition, error) {
	if row.ID() == "" {
		return models.ServiceDefinition{}, errMissingID
	}
	price, err := asFloat(row[fieldPrice])
	if err != nil {
		return models.ServiceDefinition{}, fmt.Errorf("price: %w", err)
	}
	order := 0
	if v, ok := row[fieldDisplayOrder]; ok && v != nil {
		f, err := asFloat(v)
		if err != nil {
			return models.ServiceDefinition{}, fmt.Errorf("display_order: %w", err)
		}
		order = int(f)
	}
	return models.ServiceDefinition{
		ID:              row.ID(),
		Label:           asString(row[fieldLabel]),
		BasePrice:       price,
		AllowsSurcharge: asBool(row[fieldAllowNavalhado]),
		IsEditable:      asBool(row[fieldIsEditable]),
		DisplayOrder:    order,
	}, nil
}

func encodeAppointment(a models.Appointment) store.Row {
	row := store.Row{
		fieldClientName:    a.ClientName,
		fieldClientPhone:   a.ClientPhone,
		fieldBarberID:      a.BarberID,
		fieldServiceType:   a.ServiceType,
		fieldDuration:      int(a.Duration),
		fieldScheduledTime: encodeTime(a.ScheduledTime),
		fieldStatus:        string(a.Status),
	}
	if a.ID != "" {
		row[fieldID] = a.ID
	}
	return row
}

// encodeAppointmentPatch only carries the fields present in the patch.
func encodeAppointmentPatch(p models.AppointmentPatch) store.Row {
	row := store.Row{}
	if p.ClientName != nil {
		row[fieldClientName] = *p.ClientName
	}
	if p.ClientPhone != nil {
		row[fieldClientPhone] = *p.ClientPhone
	}
	if p.BarberID != nil {
		row[fieldBarberID] = *p.BarberID
	}
	if p.ServiceType != nil {
		row[fieldServiceType] = *p.ServiceType
	}
	if p.Duration != nil {
		row[fieldDuration] = int(*p.Duration)
	}
	if p.ScheduledTime != nil {
		row[fieldScheduledTime] = encodeTime(*p.ScheduledTime)
	}
	if p.Status != nil {
		row[fieldStatus] = string(*p.Status)
	}
	return row
}

func decodeAppointment(row store.Row) (models.Appointment, error) {
	if row.ID() == "" {
		return models.Appointment{}, errMissingID
	}
	duration, err := asFloat(row[fieldDuration])
	if err != nil {
		return models.Appointment{}, fmt.Errorf("duration: %w", err)
	}
	scheduled, err := asTime(row[fieldScheduledTime])
	if err != nil {
		return models.Appointment{}, fmt.Errorf("scheduled_time: %w", err)
	}
	status := models.AppointmentStatus(asString(row[fieldStatus]))
	if status == "" {
		status = models.AppointmentScheduled
	}
	return models.Appointment{
		ID:            row.ID(),
		ClientName:    asString(row[fieldClientName]),
		ClientPhone:   asString(row[fieldClientPhone]),
		BarberID:      asString(row[fieldBarberID]),
		ServiceType:   asString(row[fieldServiceType]),
		Duration:      models.ServiceDuration(int(duration)),
		ScheduledTime: scheduled,
		Status:        status,
	}, nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		if n == "" {
			return 0, nil
		}
		return strconv.ParseFloat(n, 64)
	default:
		return strconv.ParseFloat(fmt.Sprint(n), 64)
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	case float64:
		return b != 0
	case int:
		return b != 0
	case int64:
		return b != 0
	}
	return false
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if t == "" {
			return time.Time{}, errors.New("empty time")
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, nil
		}
		// Browsers wrote "2006-01-02T15:04:05.000Z"; RFC3339Nano covers it, plain
		// dates are accepted for hand-edited files.
		return time.Parse("2006-01-02", t)
	case nil:
		return time.Time{}, errors.New("missing time")
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}
