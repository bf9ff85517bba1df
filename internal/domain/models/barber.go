package models

// Barber is a chair in the shop with its own commission rate.
type Barber struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CommissionRate float64 `json:"commissionRate"` // percentage, 0..100
}

// DefaultBarbers seeds an empty shop.
func DefaultBarbers() []Barber {
	return []Barber{
		{ID: "1", Name: "João", CommissionRate: 50},
		{ID: "2", Name: "Pedro", CommissionRate: 50},
	}
}
