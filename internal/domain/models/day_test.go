package models

import (
	"testing"
	"time"
)

func TestSameDayUsesLocalBoundary(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	// 01:30 UTC is still the previous evening in BRT.
	late := time.Date(2026, 10, 16, 1, 30, 0, 0, time.UTC)
	evening := time.Date(2026, 10, 15, 20, 0, 0, 0, loc)

	if !SameDay(late, evening, loc) {
		t.Error("SameDay() = false, want true across the UTC boundary")
	}
	if SameDay(late, evening, time.UTC) {
		t.Error("SameDay() in UTC = true, want false")
	}
}

func TestWeekStart(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2026, 10, 16, 15, 0, 0, 0, loc), time.Date(2026, 10, 12, 0, 0, 0, 0, loc)}, // Friday
		{time.Date(2026, 10, 12, 9, 0, 0, 0, loc), time.Date(2026, 10, 12, 0, 0, 0, 0, loc)},  // Monday
		{time.Date(2026, 10, 18, 9, 0, 0, 0, loc), time.Date(2026, 10, 12, 0, 0, 0, 0, loc)},  // Sunday
	}
	for _, tt := range tests {
		if got := WeekStart(tt.in, loc); !got.Equal(tt.want) {
			t.Errorf("WeekStart(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAppointmentPatchApply(t *testing.T) {
	base := Appointment{ID: "a1", ClientName: "Ana", ClientPhone: "(11) 99999-0000", Duration: Duration30, Status: AppointmentScheduled}
	name := "Ana Paula"
	status := AppointmentCompleted

	got := AppointmentPatch{ClientName: &name, Status: &status}.Apply(base)

	if got.ClientName != "Ana Paula" || got.Status != AppointmentCompleted {
		t.Errorf("Apply() = %+v", got)
	}
	if got.ClientPhone != base.ClientPhone || got.Duration != base.Duration {
		t.Errorf("Apply() touched absent fields: %+v", got)
	}
	if !(AppointmentPatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
}
