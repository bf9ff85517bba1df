package store

import "testing"

func TestFilterMatches(t *testing.T) {
	row := Row{"barber_id": "1", "service_id": "corte", "current_price": float64(40)}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"string match", Filter{"barber_id": "1"}, true},
		{"typed number against json number", Filter{"current_price": 40}, true},
		{"composite key", Filter{"barber_id": "1", "service_id": "corte"}, true},
		{"mismatch", Filter{"barber_id": "2"}, false},
		{"missing field", Filter{"status": "scheduled"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(row); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyFilter(t *testing.T) {
	f, err := KeyFilter([]string{"barber_id", "service_id"}, Row{"barber_id": "1", "service_id": "barba", "is_navalhado": true})
	if err != nil {
		t.Fatalf("KeyFilter() error = %v", err)
	}
	if len(f) != 2 || f["barber_id"] != "1" || f["service_id"] != "barba" {
		t.Errorf("KeyFilter() = %v", f)
	}

	if _, err := KeyFilter([]string{"barber_id"}, Row{}); err == nil {
		t.Error("expected error for missing key field")
	}
	if _, err := KeyFilter(nil, Row{"barber_id": "1"}); err == nil {
		t.Error("expected error for empty key set")
	}
}

func TestSortRows(t *testing.T) {
	rows := []Row{
		{"id": "c", "display_order": float64(2)},
		{"id": "x"},
		{"id": "a", "display_order": 0},
		{"id": "b", "display_order": int64(1)},
	}
	SortRows(rows, "display_order")

	want := []string{"a", "b", "c", "x"}
	for i, id := range want {
		if rows[i].ID() != id {
			t.Errorf("rows[%d] = %q, want %q", i, rows[i].ID(), id)
		}
	}
}

func TestValidateCollection(t *testing.T) {
	if err := ValidateCollection(CollectionHistory); err != nil {
		t.Errorf("ValidateCollection(history) = %v", err)
	}
	if err := ValidateCollection("servicesState"); err == nil {
		t.Error("expected unknown collection error")
	}
}
