package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/barberdash/internal/domain/models"
)

// UpcomingLimit caps the upcoming appointments list.
const UpcomingLimit = 5

var hundred = decimal.NewFromInt(100)

// Money converts a stored price into a decimal amount.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// DailyRevenue sums the prices of barberID's sales on the local day of day.
func DailyRevenue(history []models.HistoryItem, barberID string, day time.Time, loc *time.Location) decimal.Decimal {
	total := decimal.Zero
	for _, h := range history {
		if h.BarberID == barberID && models.SameDay(h.Timestamp, day, loc) {
			total = total.Add(Money(h.Price))
		}
	}
	return total
}

// Split divides revenue between barber and shop.
type Split struct {
	Total  decimal.Decimal `json:"total"`
	Barber decimal.Decimal `json:"barber"`
	Shop   decimal.Decimal `json:"shop"`
}

// CommissionSplit gives the barber rate percent of total, rounded to cents,
// and the shop the remainder, so the two shares always add up to total.
func CommissionSplit(total decimal.Decimal, rate float64) Split {
	barber := total.Mul(decimal.NewFromFloat(rate)).Div(hundred).Round(2)
	return Split{Total: total, Barber: barber, Shop: total.Sub(barber)}
}

// ServiceStat is the count and revenue of one service label.
type ServiceStat struct {
	Label string          `json:"label"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// CountsByService groups sales by service label in order of first sale.
func CountsByService(items []models.HistoryItem) []ServiceStat {
	index := map[string]int{}
	var stats []ServiceStat
	for _, h := range items {
		i, ok := index[h.ServiceLabel]
		if !ok {
			i = len(stats)
			index[h.ServiceLabel] = i
			stats = append(stats, ServiceStat{Label: h.ServiceLabel, Total: decimal.Zero})
		}
		stats[i].Count++
		stats[i].Total = stats[i].Total.Add(Money(h.Price))
	}
	return stats
}

// PaymentTotal is the revenue settled with one payment method.
type PaymentTotal struct {
	Method models.PaymentMethod `json:"method"`
	Total  decimal.Decimal      `json:"total"`
}

// TotalsByPaymentMethod sums sales per payment method, in the display order
// of models.PaymentMethods. Methods without sales are left out.
func TotalsByPaymentMethod(items []models.HistoryItem) []PaymentTotal {
	sums := map[models.PaymentMethod]decimal.Decimal{}
	for _, h := range items {
		m := h.PaymentMethod.OrDefault()
		sums[m] = sums[m].Add(Money(h.Price))
	}

	var out []PaymentTotal
	for _, m := range models.PaymentMethods {
		if total, ok := sums[m]; ok {
			out = append(out, PaymentTotal{Method: m, Total: total})
			delete(sums, m)
		}
	}
	// Unknown methods read from the store go last, sorted by name.
	var rest []models.PaymentMethod
	for m := range sums {
		rest = append(rest, m)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, m := range rest {
		out = append(out, PaymentTotal{Method: m, Total: sums[m]})
	}
	return out
}

// DayTotal is the revenue of one day of the week.
type DayTotal struct {
	Day   time.Time       `json:"day"`
	Total decimal.Decimal `json:"total"`
}

// Week is a barber's Monday to Saturday revenue.
type Week struct {
	Start time.Time  `json:"start"`
	Days  []DayTotal `json:"days"`
	Split Split      `json:"split"`
}

// WeeklyTotals reports barberID's revenue for each working day, Monday to
// Saturday, of the week containing day, with the commission split of the
// week total.
func WeeklyTotals(history []models.HistoryItem, barberID string, day time.Time, rate float64, loc *time.Location) Week {
	monday := models.WeekStart(day, loc)
	week := Week{Start: monday, Days: make([]DayTotal, 6)}

	total := decimal.Zero
	for i := range week.Days {
		d := monday.AddDate(0, 0, i)
		dayTotal := DailyRevenue(history, barberID, d, loc)
		week.Days[i] = DayTotal{Day: d, Total: dayTotal}
		total = total.Add(dayTotal)
	}
	week.Split = CommissionSplit(total, rate)
	return week
}

// ScheduledCount counts appointments still scheduled on the local day of day.
func ScheduledCount(appointments []models.Appointment, day time.Time, loc *time.Location) int {
	n := 0
	for _, a := range appointments {
		if a.Status == models.AppointmentScheduled && models.SameDay(a.ScheduledTime, day, loc) {
			n++
		}
	}
	return n
}

// DayAppointments lists the appointments on the local day of day, earliest
// first. An empty barberID means every barber.
func DayAppointments(appointments []models.Appointment, barberID string, day time.Time, loc *time.Location) []models.Appointment {
	var out []models.Appointment
	for _, a := range appointments {
		if matchesBarber(a, barberID) && models.SameDay(a.ScheduledTime, day, loc) {
			out = append(out, a)
		}
	}
	sortByTime(out)
	return out
}

// UpcomingAppointments lists the first UpcomingLimit appointments on days
// after day, earliest first.
func UpcomingAppointments(appointments []models.Appointment, barberID string, day time.Time, loc *time.Location) []models.Appointment {
	next := models.DayStart(day, loc).AddDate(0, 0, 1)
	var out []models.Appointment
	for _, a := range appointments {
		if matchesBarber(a, barberID) && !a.ScheduledTime.Before(next) {
			out = append(out, a)
		}
	}
	sortByTime(out)
	if len(out) > UpcomingLimit {
		out = out[:UpcomingLimit]
	}
	return out
}

func matchesBarber(a models.Appointment, barberID string) bool {
	return barberID == "" || a.BarberID == barberID
}

func sortByTime(appointments []models.Appointment) {
	sort.SliceStable(appointments, func(i, j int) bool {
		return appointments[i].ScheduledTime.Before(appointments[j].ScheduledTime)
	})
}
