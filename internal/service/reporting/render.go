package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/barberdash/internal/domain/models"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"
)

// BarberDaySummary is one barber's financial panel for a day.
type BarberDaySummary struct {
	Barber   models.Barber        `json:"barber"`
	Day      time.Time            `json:"day"`
	Items    []models.HistoryItem `json:"items"`
	Split    Split                `json:"split"`
	Services []ServiceStat        `json:"services"`
	Payments []PaymentTotal       `json:"payments"`
}

// Summarize builds the day summary of a barber from the full history.
func Summarize(barber models.Barber, history []models.HistoryItem, day time.Time, loc *time.Location) BarberDaySummary {
	var items []models.HistoryItem
	for _, h := range history {
		if h.BarberID == barber.ID && models.SameDay(h.Timestamp, day, loc) {
			items = append(items, h)
		}
	}
	return BarberDaySummary{
		Barber:   barber,
		Day:      models.DayStart(day, loc),
		Items:    items,
		Split:    CommissionSplit(DailyRevenue(items, barber.ID, day, loc), barber.CommissionRate),
		Services: CountsByService(items),
		Payments: TotalsByPaymentMethod(items),
	}
}

// RenderText formats a summary as a WhatsApp message.
func RenderText(s BarberDaySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💈 *Relatório - %s* 💈\n", s.Barber.Name)
	fmt.Fprintf(&b, "📅 Data: %s\n\n", s.Day.Format(dateLayout))
	fmt.Fprintf(&b, "💰 *Faturamento:* R$ %s\n", s.Split.Total.StringFixed(2))
	fmt.Fprintf(&b, "✂️ *Comissão (%s%%):* R$ %s\n", decimal.NewFromFloat(s.Barber.CommissionRate).String(), s.Split.Barber.StringFixed(2))
	fmt.Fprintf(&b, "🏢 *Líquido:* R$ %s\n\n", s.Split.Shop.StringFixed(2))
	b.WriteString("*Resumo por Serviço:*")
	for _, st := range s.Services {
		fmt.Fprintf(&b, "\n- %dx %s: R$ %s", st.Count, st.Label, st.Total.StringFixed(2))
	}
	return b.String()
}

// WriteCSV writes the day's sales as a semicolon separated sheet with comma
// decimals, followed by the total and commission rows.
func WriteCSV(w io.Writer, s BarberDaySummary, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	records := [][]string{{"Data", "Hora", "Serviço", "Valor", "Método", "Navalhado"}}
	for _, h := range s.Items {
		ts := h.Timestamp.In(loc)
		records = append(records, []string{
			ts.Format(dateLayout),
			ts.Format(timeLayout),
			h.ServiceLabel,
			commaDecimal(Money(h.Price)),
			string(h.PaymentMethod.OrDefault()),
			yesNo(h.SurchargeApplied),
		})
	}
	records = append(records,
		[]string{"", "", "Total", commaDecimal(s.Split.Total), "", ""},
		[]string{"", "", "Comissão", commaDecimal(s.Split.Barber), "", ""},
	)

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// CSVFilename names the export of a summary.
func CSVFilename(s BarberDaySummary) string {
	return fmt.Sprintf("Relatorio_%s_%s.csv", s.Barber.Name, s.Day.Format("2006-01-02"))
}

func commaDecimal(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func yesNo(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}
