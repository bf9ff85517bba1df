package chat

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/service/syncengine"
)

const operatorNumber = "5511900000001"

var noon = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	state syncengine.State
}

func (f fakeSource) Snapshot() syncengine.State { return f.state }
func (f fakeSource) Location() *time.Location { return time.UTC }

type sentMessage struct {
	to, body string
}

type fakeWhatsApp struct {
	sent []sentMessage
	err  error
}

func (f *fakeWhatsApp) SendText(_ context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return "wamid.1", nil
}

func newTestService(wa *fakeWhatsApp) *Service {
	state := syncengine.State{
		Barbers: []models.Barber{
			{ID: "1", Name: "João", CommissionRate: 50},
			{ID: "2", Name: "Pedro", CommissionRate: 40},
		},
		History: []models.HistoryItem{
			{ID: "h1", BarberID: "1", ServiceLabel: "Corte", Price: 40, Timestamp: noon.Add(-time.Hour)},
			{ID: "h2", BarberID: "2", ServiceLabel: "Barba", Price: 35, Timestamp: noon.Add(-2 * time.Hour)},
			{ID: "h3", BarberID: "1", ServiceLabel: "Corte", Price: 40, Timestamp: noon.AddDate(0, 0, -1)},
		},
		Appointments: []models.Appointment{
			{ID: "a2", ClientName: "Carlos", BarberID: "2", ServiceType: "Barba", ScheduledTime: noon.Add(3 * time.Hour), Status: models.AppointmentScheduled},
			{ID: "a1", ClientName: "Ana", BarberID: "1", ServiceType: "Corte", ScheduledTime: noon.Add(time.Hour), Status: models.AppointmentScheduled},
			{ID: "a3", ClientName: "Bia", BarberID: "1", ServiceType: "Corte", ScheduledTime: noon.Add(2 * time.Hour), Status: models.AppointmentCancelled},
		},
	}
	cfg := config.WhatsAppConfig{VerifyToken: "s3cret", ReportTo: operatorNumber + ",5511900000002"}
	svc := NewService(cfg, wa, fakeSource{state: state}, nil)
	svc.now = func() time.Time { return noon }
	return svc
}

func textPayload(from, body string) models.WebhookPayload {
	return models.WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []models.WebhookEntry{{
			Changes: []models.WebhookChange{{
				Field: "messages",
				Value: models.WebhookValue{Messages: []models.InboundMessage{{
					From: from,
					ID:   "wamid.in",
					Type: "text",
					Text: &models.TextContent{Body: body},
				}}},
			}},
		}},
	}
}

func TestVerifyWebhookToken(t *testing.T) {
	svc := newTestService(&fakeWhatsApp{})

	got, err := svc.VerifyWebhookToken("subscribe", "s3cret", "1158201444")
	if err != nil || got != "1158201444" {
		t.Fatalf("VerifyWebhookToken() = %q, %v", got, err)
	}

	for _, tc := range []struct{ mode, token string }{
		{"", "s3cret"},
		{"unsubscribe", "s3cret"},
		{"subscribe", "wrong"},
	} {
		if _, err := svc.VerifyWebhookToken(tc.mode, tc.token, "x"); !errors.Is(err, ErrVerification) {
			t.Errorf("VerifyWebhookToken(%q, %q) error = %v, want ErrVerification", tc.mode, tc.token, err)
		}
	}
}

func TestVerifySignature(t *testing.T) {
	svc := newTestService(&fakeWhatsApp{})
	body := []byte(`{"object":"whatsapp_business_account"}`)

	if err := svc.VerifySignature(body, ""); err != nil {
		t.Fatalf("without secret: error = %v", err)
	}

	svc.cfg.AppSecret = "app-secret"
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	other := hmac.New(sha256.New, []byte("app-secret"))
	other.Write([]byte(`{}`))
	forged := "sha256=" + hex.EncodeToString(other.Sum(nil))

	if err := svc.VerifySignature(body, valid); err != nil {
		t.Errorf("valid signature: error = %v", err)
	}
	for _, header := range []string{"", "sha256=zz", "sha1=" + hex.EncodeToString(mac.Sum(nil)), forged} {
		if err := svc.VerifySignature(body, header); !errors.Is(err, ErrBadSignature) {
			t.Errorf("VerifySignature(%q) error = %v, want ErrBadSignature", header, err)
		}
	}
}

func TestHandleWebhookRepliesToOperators(t *testing.T) {
	ctx := context.Background()

	t.Run("closing report", func(t *testing.T) {
		wa := &fakeWhatsApp{}
		svc := newTestService(wa)
		if err := svc.HandleWebhook(ctx, textPayload(operatorNumber, "Fechamento")); err != nil {
			t.Fatalf("HandleWebhook() error = %v", err)
		}
		if len(wa.sent) != 1 || wa.sent[0].to != operatorNumber {
			t.Fatalf("sent = %+v", wa.sent)
		}
		body := wa.sent[0].body
		for _, want := range []string{"Relatório - João", "Relatório - Pedro", "Total da casa:* R$ 75.00"} {
			if !strings.Contains(body, want) {
				t.Errorf("reply missing %q:\n%s", want, body)
			}
		}
	})

	t.Run("unknown sender is ignored", func(t *testing.T) {
		wa := &fakeWhatsApp{}
		svc := newTestService(wa)
		if err := svc.HandleWebhook(ctx, textPayload("5599999999999", "fechamento")); err != nil {
			t.Fatalf("HandleWebhook() error = %v", err)
		}
		if len(wa.sent) != 0 {
			t.Errorf("sent = %+v, want nothing", wa.sent)
		}
	})

	t.Run("status callbacks are ignored", func(t *testing.T) {
		wa := &fakeWhatsApp{}
		svc := newTestService(wa)
		payload := models.WebhookPayload{Entry: []models.WebhookEntry{{Changes: []models.WebhookChange{{
			Value: models.WebhookValue{Statuses: []models.MessageStatus{{ID: "wamid.1", Status: "read"}}},
		}}}}}
		if err := svc.HandleWebhook(ctx, payload); err != nil {
			t.Fatalf("HandleWebhook() error = %v", err)
		}
		if len(wa.sent) != 0 {
			t.Errorf("sent = %+v, want nothing", wa.sent)
		}
	})

	t.Run("send failure is returned", func(t *testing.T) {
		wa := &fakeWhatsApp{err: errors.New("graph api down")}
		svc := newTestService(wa)
		if err := svc.HandleWebhook(ctx, textPayload(operatorNumber, "agenda")); err == nil {
			t.Error("HandleWebhook() error = nil, want send failure")
		}
	})
}

func TestAnswer(t *testing.T) {
	svc := newTestService(&fakeWhatsApp{})

	tests := []struct {
		name    string
		message string
		want    []string
		notWant []string
	}{
		{
			name:    "summary by name",
			message: "/resumo joão",
			want:    []string{"Relatório - João", "Faturamento:* R$ 40.00"},
		},
		{
			name:    "summary by id",
			message: "resumo 2",
			want:    []string{"Relatório - Pedro", "Faturamento:* R$ 35.00"},
		},
		{
			name:    "summary without barber",
			message: "resumo",
			want:    []string{"resumo João"},
		},
		{
			name:    "summary of unknown barber",
			message: "resumo Zé",
			want:    []string{"não encontrado", "João, Pedro"},
		},
		{
			name:    "agenda lists scheduled appointments in order",
			message: "agenda",
			want:    []string{"Agenda de 10/05/2024", "13:00 ana (Corte) com João\n- 15:00 carlos"},
			notWant: []string{"bia"},
		},
		{
			name:    "help",
			message: "menu",
			want:    []string{"Comandos disponíveis"},
			notWant: []string{"não reconhecido"},
		},
		{
			name:    "unknown command",
			message: "preço 40",
			want:    []string{"Comando não reconhecido", "Comandos disponíveis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Answer(models.ParseChatCommand(tt.message))
			for _, want := range tt.want {
				if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
					t.Errorf("Answer(%q) missing %q:\n%s", tt.message, want, got)
				}
			}
			for _, unwanted := range tt.notWant {
				if strings.Contains(strings.ToLower(got), strings.ToLower(unwanted)) {
					t.Errorf("Answer(%q) contains %q:\n%s", tt.message, unwanted, got)
				}
			}
		})
	}
}
