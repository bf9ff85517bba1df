package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/server/handlers"
	"github.com/mamadbah2/barberdash/internal/service/chat"
)

type replies struct {
	to   []string
	body []string
}

func (r *replies) SendText(_ context.Context, to, body string) (string, error) {
	r.to = append(r.to, to)
	r.body = append(r.body, body)
	return "wamid.out", nil
}

func TestWebhookRoutes(t *testing.T) {
	_, engine := newDashboard(t, joao())
	dashboard := handlers.NewDashboardHandler(engine, nil, nil)

	t.Run("not mounted without chat", func(t *testing.T) {
		h := New(dashboard, nil, operator, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	out := &replies{}
	cfg := config.WhatsAppConfig{VerifyToken: "tok", AppSecret: "", ReportTo: "5511900000001"}
	webhook := handlers.NewWebhookHandler(chat.NewService(cfg, out, engine, nil), nil)
	h := New(dashboard, webhook, operator, nil)

	t.Run("verification is public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=tok&hub.challenge=42", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "42" {
			t.Errorf("verify = %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("bad token status = %d, want 403", rec.Code)
		}
	})

	t.Run("operator message gets a reply", func(t *testing.T) {
		body := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{"messages":[{"from":"5511900000001","id":"wamid.in","type":"text","text":{"body":"resumo joão"}}]}}]}]}`
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if len(out.to) != 1 || out.to[0] != "5511900000001" || !strings.Contains(out.body[0], "João") {
			t.Errorf("replies = %+v", out)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestWebhookRejectsUnsignedCallbacks(t *testing.T) {
	_, engine := newDashboard(t)
	cfg := config.WhatsAppConfig{VerifyToken: "tok", AppSecret: "shh", ReportTo: "5511900000001"}
	webhook := handlers.NewWebhookHandler(chat.NewService(cfg, &replies{}, engine, nil), nil)
	h := New(handlers.NewDashboardHandler(engine, nil, nil), webhook, operator, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"entry":[]}`))
	req.Header.Set("X-Hub-Signature-256", "sha256=00")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
