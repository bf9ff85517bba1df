package models

import "time"

// HistoryItem is one recorded sale. ServiceLabel is a copy of the catalog
// label at the time of sale so old reports survive renames.
type HistoryItem struct {
	ID               string        `json:"id"`
	BarberID         string        `json:"barberId"`
	ServiceLabel     string        `json:"serviceLabel"`
	Price            float64       `json:"price"`
	Timestamp        time.Time     `json:"timestamp"`
	SurchargeApplied bool          `json:"surchargeApplied"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
}
