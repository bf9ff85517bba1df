package models

import "testing"

func TestServiceEffectiveConfig(t *testing.T) {
	stored := ServiceConfig{BarberID: "1", ServiceID: "x", CurrentPrice: 40, SurchargeActive: true, SelectedPaymentMethod: PaymentPix}

	tests := []struct {
		name          string
		svc           ServiceDefinition
		wantPrice     float64
		wantSurcharge bool
	}{
		{"locked follows base price", ServiceDefinition{ID: "x", BasePrice: 50, AllowsSurcharge: true}, 50, true},
		{"editable keeps its price", ServiceDefinition{ID: "x", BasePrice: 0, AllowsSurcharge: true, IsEditable: true}, 40, true},
		{"no surcharge allowed", ServiceDefinition{ID: "x", BasePrice: 50}, 50, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.svc.Effective(stored)
			if got.CurrentPrice != tt.wantPrice {
				t.Errorf("CurrentPrice = %v, want %v", got.CurrentPrice, tt.wantPrice)
			}
			if got.SurchargeActive != tt.wantSurcharge {
				t.Errorf("SurchargeActive = %v, want %v", got.SurchargeActive, tt.wantSurcharge)
			}
			if got.SelectedPaymentMethod != PaymentPix {
				t.Errorf("SelectedPaymentMethod = %q, want pix", got.SelectedPaymentMethod)
			}
		})
	}
}
