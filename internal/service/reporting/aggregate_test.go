package reporting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/barberdash/internal/domain/models"
)

var (
	brt   = time.FixedZone("BRT", -3*60*60)
	today = time.Date(2026, 10, 16, 15, 0, 0, 0, brt) // Friday
)

func sale(id, barberID, label string, price float64, at time.Time, method models.PaymentMethod) models.HistoryItem {
	return models.HistoryItem{ID: id, BarberID: barberID, ServiceLabel: label, Price: price, Timestamp: at, PaymentMethod: method}
}

func joaoDay() []models.HistoryItem {
	return []models.HistoryItem{
		sale("1", "joao", "Corte", 40, today.Add(-5*time.Hour), models.PaymentCash),
		sale("2", "joao", "Barba", 35, today.Add(-4*time.Hour), models.PaymentPix),
		sale("3", "pedro", "Corte", 40, today.Add(-3*time.Hour), models.PaymentCash),
		sale("4", "joao", "Corte", 45, today.Add(-2*time.Hour), models.PaymentPix),
		sale("5", "joao", "Corte", 40, today.AddDate(0, 0, -1), models.PaymentCash),
	}
}

func TestDailyRevenue(t *testing.T) {
	items := joaoDay()
	got := DailyRevenue(items, "joao", today, brt)
	if want := decimal.NewFromInt(120); !got.Equal(want) {
		t.Fatalf("DailyRevenue() = %s, want %s", got, want)
	}

	reversed := make([]models.HistoryItem, len(items))
	for i, h := range items {
		reversed[len(items)-1-i] = h
	}
	if again := DailyRevenue(reversed, "joao", today, brt); !again.Equal(got) {
		t.Errorf("DailyRevenue() depends on order: %s vs %s", again, got)
	}

	// 23:30 BRT is already the next day in UTC but still today locally.
	late := sale("6", "joao", "Barba", 35, time.Date(2026, 10, 16, 23, 30, 0, 0, brt), models.PaymentCash)
	if got := DailyRevenue([]models.HistoryItem{late}, "joao", today, brt); !got.Equal(decimal.NewFromInt(35)) {
		t.Errorf("late sale revenue = %s, want 35", got)
	}
}

func TestCommissionSplit(t *testing.T) {
	tests := []struct {
		total      string
		rate       float64
		wantBarber string
		wantShop   string
	}{
		{"120", 50, "60", "60"},
		{"45", 33.3, "14.99", "30.01"},
		{"0.3", 50, "0.15", "0.15"},
		{"99.99", 0, "0", "99.99"},
		{"99.99", 100, "99.99", "0"},
	}
	for _, tt := range tests {
		total := decimal.RequireFromString(tt.total)
		got := CommissionSplit(total, tt.rate)
		if !got.Barber.Equal(decimal.RequireFromString(tt.wantBarber)) || !got.Shop.Equal(decimal.RequireFromString(tt.wantShop)) {
			t.Errorf("CommissionSplit(%s, %v) = %s/%s, want %s/%s", tt.total, tt.rate, got.Barber, got.Shop, tt.wantBarber, tt.wantShop)
		}
		if !got.Barber.Add(got.Shop).Equal(total) {
			t.Errorf("CommissionSplit(%s, %v) shares do not add up", tt.total, tt.rate)
		}
	}
}

func TestCountsAndPayments(t *testing.T) {
	items := joaoDay()[:4]

	stats := CountsByService(items)
	if len(stats) != 2 || stats[0].Label != "Corte" || stats[0].Count != 3 || !stats[0].Total.Equal(decimal.NewFromInt(125)) {
		t.Errorf("CountsByService() = %+v", stats)
	}

	payments := TotalsByPaymentMethod(items)
	if len(payments) != 2 {
		t.Fatalf("TotalsByPaymentMethod() = %+v", payments)
	}
	if payments[0].Method != models.PaymentCash || !payments[0].Total.Equal(decimal.NewFromInt(80)) {
		t.Errorf("cash total = %+v", payments[0])
	}
	if payments[1].Method != models.PaymentPix || !payments[1].Total.Equal(decimal.NewFromInt(80)) {
		t.Errorf("pix total = %+v", payments[1])
	}
}

func TestWeeklyTotals(t *testing.T) {
	monday := time.Date(2026, 10, 12, 10, 0, 0, 0, brt)
	items := []models.HistoryItem{
		sale("1", "joao", "Corte", 40, monday, models.PaymentCash),
		sale("2", "joao", "Barba", 35, monday.AddDate(0, 0, 2), models.PaymentCash),
		sale("3", "joao", "Combo", 70, monday.AddDate(0, 0, 5), models.PaymentCash),  // Saturday
		sale("4", "joao", "Corte", 40, monday.AddDate(0, 0, 6), models.PaymentCash),  // Sunday
		sale("5", "joao", "Corte", 40, monday.AddDate(0, 0, -1), models.PaymentCash), // previous week
		sale("6", "pedro", "Corte", 40, monday, models.PaymentCash),
	}

	week := WeeklyTotals(items, "joao", today, 40, brt)
	if !week.Start.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, brt)) {
		t.Errorf("Start = %v", week.Start)
	}
	if len(week.Days) != 6 {
		t.Fatalf("Days = %d, want 6", len(week.Days))
	}
	wantDays := []int64{40, 0, 35, 0, 0, 70}
	for i, want := range wantDays {
		if !week.Days[i].Total.Equal(decimal.NewFromInt(want)) {
			t.Errorf("day %d total = %s, want %d", i, week.Days[i].Total, want)
		}
	}
	if !week.Split.Total.Equal(decimal.NewFromInt(145)) || !week.Split.Barber.Equal(decimal.NewFromInt(58)) {
		t.Errorf("Split = %+v", week.Split)
	}
}

func TestAppointmentViews(t *testing.T) {
	at := func(day, hour int) time.Time { return time.Date(2026, 10, day, hour, 0, 0, 0, brt) }
	appts := []models.Appointment{
		{ID: "late", BarberID: "joao", ScheduledTime: at(16, 18), Status: models.AppointmentScheduled},
		{ID: "early", BarberID: "pedro", ScheduledTime: at(16, 9), Status: models.AppointmentScheduled},
		{ID: "done", BarberID: "joao", ScheduledTime: at(16, 11), Status: models.AppointmentCompleted},
		{ID: "yesterday", BarberID: "joao", ScheduledTime: at(15, 10), Status: models.AppointmentScheduled},
	}
	for d := 17; d <= 22; d++ {
		appts = append(appts, models.Appointment{ID: "f" + string(rune('0'+d-16)), BarberID: "joao", ScheduledTime: at(d, 10), Status: models.AppointmentScheduled})
	}

	if got := ScheduledCount(appts, today, brt); got != 2 {
		t.Errorf("ScheduledCount() = %d, want 2", got)
	}

	day := DayAppointments(appts, "", today, brt)
	if len(day) != 3 || day[0].ID != "early" || day[1].ID != "done" || day[2].ID != "late" {
		t.Errorf("DayAppointments() = %v", ids(day))
	}
	if got := DayAppointments(appts, "pedro", today, brt); len(got) != 1 || got[0].ID != "early" {
		t.Errorf("DayAppointments(pedro) = %v", ids(got))
	}

	upcoming := UpcomingAppointments(appts, "", today, brt)
	if len(upcoming) != UpcomingLimit || upcoming[0].ID != "f1" || upcoming[4].ID != "f5" {
		t.Errorf("UpcomingAppointments() = %v", ids(upcoming))
	}

	// Completing the only scheduled appointment of the day drops the badge.
	appts[0].Status = models.AppointmentCompleted
	appts[1].Status = models.AppointmentCancelled
	if got := ScheduledCount(appts, today, brt); got != 0 {
		t.Errorf("ScheduledCount() after completion = %d, want 0", got)
	}
}

func ids(appts []models.Appointment) []string {
	out := make([]string, len(appts))
	for i, a := range appts {
		out[i] = a.ID
	}
	return out
}
