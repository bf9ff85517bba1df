package models

// ServiceDefinition is an entry of the shop-wide service catalog.
type ServiceDefinition struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	BasePrice       float64 `json:"basePrice"`
	AllowsSurcharge bool    `json:"allowsSurcharge"`
	IsEditable      bool    `json:"isEditable"`
	DisplayOrder    int     `json:"displayOrder"`
}

// ServiceConfig holds the per-barber settings for one catalog service.
type ServiceConfig struct {
	BarberID              string        `json:"barberId"`
	ServiceID             string        `json:"serviceId"`
	CurrentPrice          float64       `json:"currentPrice"`
	SurchargeActive       bool          `json:"surchargeActive"`
	SelectedPaymentMethod PaymentMethod `json:"selectedPaymentMethod"`
}

// ConfigKey identifies a ServiceConfig.
type ConfigKey struct {
	BarberID  string
	ServiceID string
}

// Key returns the (barber, service) pair of the config.
func (c ServiceConfig) Key() ConfigKey {
	return ConfigKey{BarberID: c.BarberID, ServiceID: c.ServiceID}
}

// DefaultConfig is the effective config of a pair that has no stored row yet.
func DefaultConfig(barberID string, svc ServiceDefinition) ServiceConfig {
	return ServiceConfig{
		BarberID:              barberID,
		ServiceID:             svc.ID,
		CurrentPrice:          svc.BasePrice,
		SurchargeActive:       false,
		SelectedPaymentMethod: DefaultPaymentMethod,
	}
}

// Effective pins the fields of cfg that the catalog entry controls. Locked
// services always sell at their base price and services without a surcharge
// never carry one.
func (svc ServiceDefinition) Effective(cfg ServiceConfig) ServiceConfig {
	if !svc.IsEditable {
		cfg.CurrentPrice = svc.BasePrice
	}
	if !svc.AllowsSurcharge {
		cfg.SurchargeActive = false
	}
	return cfg
}

// DefaultCatalog is used whenever the store reports an empty catalog.
func DefaultCatalog() []ServiceDefinition {
	return []ServiceDefinition{
		{ID: "corte", Label: "Corte", BasePrice: 40, AllowsSurcharge: true, DisplayOrder: 0},
		{ID: "barba", Label: "Barba", BasePrice: 35, DisplayOrder: 1},
		{ID: "maquina", Label: "Maquina", BasePrice: 35, DisplayOrder: 2},
		{ID: "acabamento", Label: "Acabamento", BasePrice: 15, DisplayOrder: 3},
		{ID: "sobrancelha", Label: "Sobrancelha", BasePrice: 15, DisplayOrder: 4},
		{ID: "combo", Label: "Combo", BasePrice: 70, DisplayOrder: 5},
		{ID: "outros", Label: "Outros", BasePrice: 0, IsEditable: true, DisplayOrder: 6},
	}
}
