package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/repository/memory"
	"github.com/mamadbah2/barberdash/internal/repository/store"
	"github.com/mamadbah2/barberdash/internal/server/handlers"
	"github.com/mamadbah2/barberdash/internal/service/syncengine"
)

var operator = config.OperatorConfig{User: "admin", Password: "admin"}

func init() {
	gin.SetMode(gin.TestMode)
}

func newDashboard(t *testing.T, barbers ...store.Row) (http.Handler, *syncengine.Engine) {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewRepository(nil)
	for _, b := range barbers {
		if _, err := repo.Create(ctx, store.CollectionBarbers, b); err != nil {
			t.Fatalf("seed barber: %v", err)
		}
	}
	engine := syncengine.NewEngine(repo, syncengine.Options{SurchargeAmount: 5, Location: time.UTC}, nil)
	if err := engine.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	return New(handlers.NewDashboardHandler(engine, nil, nil), nil, operator, nil), engine
}

func joao() store.Row {
	return store.Row{"id": "1", "name": "João", "commission_rate": 50}
}

func pedro() store.Row {
	return store.Row{"id": "2", "name": "Pedro", "commission_rate": 40}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(operator.User, operator.Password)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthzIsPublic(t *testing.T) {
	h, _ := newDashboard(t, joao())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
}

func TestOperatorAuth(t *testing.T) {
	h, _ := newDashboard(t, joao())

	t.Run("missing credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Error("missing WWW-Authenticate challenge")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		req.SetBasicAuth("admin", "nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("bcrypt hash", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("GenerateFromPassword() error = %v", err)
		}
		cfg := config.OperatorConfig{User: "caixa", Password: "ignored", PasswordHash: string(hash)}
		if !checkOperator(cfg, "caixa", "s3cret") {
			t.Error("checkOperator() rejected the hashed password")
		}
		if checkOperator(cfg, "caixa", "ignored") {
			t.Error("checkOperator() accepted the plain password while a hash is set")
		}
	})
}

func TestRecordSaleThroughAPI(t *testing.T) {
	h, engine := newDashboard(t, joao(), pedro())

	rec := do(t, h, http.MethodPut, "/api/barbers/1/services/corte/surcharge?wait=true", `{"active":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT surcharge = %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, "/api/barbers/1/services/corte/sale?wait=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST sale = %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, "/api/barbers/1/services/barba/sale", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST sale without wait = %d, want 202", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET state = %d", rec.Code)
	}
	var state struct {
		Barbers []struct {
			ID      string `json:"id"`
			Revenue string `json:"revenue"`
			History []any  `json:"history"`
		} `json:"barbers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.Barbers) != 2 {
		t.Fatalf("barbers = %d, want 2", len(state.Barbers))
	}
	if got := state.Barbers[0]; got.ID != "1" || got.Revenue != "80" || len(got.History) != 2 {
		t.Errorf("barber 1 = %+v, want revenue 80 over 2 sales", got)
	}

	rec = do(t, h, http.MethodGet, "/api/barbers/1/export.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET export = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "Data;Hora;Serviço;Valor;Método;Navalhado") {
		t.Errorf("CSV does not start with the header row: %q", rec.Body.String())
	}

	if n := len(engine.Snapshot().History); n != 2 {
		t.Errorf("engine history = %d items, want 2", n)
	}
}

func TestErrorStatuses(t *testing.T) {
	h, _ := newDashboard(t, joao())

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown barber", http.MethodPost, "/api/barbers/9/services/corte/sale", "", http.StatusNotFound},
		{"unknown service", http.MethodPost, "/api/barbers/1/services/nope/sale", "", http.StatusNotFound},
		{"locked price", http.MethodPut, "/api/barbers/1/services/corte/price", `{"price":50}`, http.StatusConflict},
		{"negative price", http.MethodPut, "/api/barbers/1/services/outros/price", `{"price":-1}`, http.StatusBadRequest},
		{"missing price", http.MethodPut, "/api/barbers/1/services/outros/price", `{}`, http.StatusBadRequest},
		{"surcharge not allowed", http.MethodPut, "/api/barbers/1/services/barba/surcharge", `{"active":true}`, http.StatusBadRequest},
		{"bad payment method", http.MethodPut, "/api/barbers/1/services/corte/payment-method", `{"method":"cheque"}`, http.StatusBadRequest},
		{"last barber", http.MethodDelete, "/api/barbers/1?confirm=true", "", http.StatusConflict},
		{"bad commission", http.MethodPatch, "/api/barbers/1", `{"commissionRate":120}`, http.StatusBadRequest},
		{"unknown appointment", http.MethodPost, "/api/appointments/x/cancel", "", http.StatusNotFound},
		{"bad day", http.MethodGet, "/api/appointments?day=16/10/2026", "", http.StatusBadRequest},
		{"report without sinks", http.MethodPost, "/api/reports/close", "", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Errorf("%s %s = %d, want %d (%s)", tc.method, tc.path, rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestAppointmentsThroughAPI(t *testing.T) {
	h, engine := newDashboard(t, joao())
	day := engine.SelectedDay()
	at := day.Add(15 * time.Hour).Format(time.RFC3339)

	body := `{"clientName":"Carlos","clientPhone":"11999990000","barberId":"1","serviceType":"Corte","duration":30,"scheduledTime":"` + at + `"}`
	rec := do(t, h, http.MethodPost, "/api/appointments?wait=true", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST appointment = %d: %s", rec.Code, rec.Body.String())
	}

	snap := engine.Snapshot()
	if len(snap.Appointments) != 1 {
		t.Fatalf("appointments = %d, want 1", len(snap.Appointments))
	}
	id := snap.Appointments[0].ID

	rec = do(t, h, http.MethodGet, "/api/appointments", "")
	var list struct {
		ScheduledCount int `json:"scheduledCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.ScheduledCount != 1 {
		t.Errorf("scheduledCount = %d, want 1", list.ScheduledCount)
	}

	rec = do(t, h, http.MethodPost, "/api/appointments/"+id+"/complete?wait=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete = %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, "/api/appointments/"+id+"/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("cancel after complete = %d, want 409", rec.Code)
	}
}

func TestDayNavigation(t *testing.T) {
	h, engine := newDashboard(t, joao())
	today := engine.SelectedDay()

	rec := do(t, h, http.MethodPost, "/api/day/prev", "")
	var got struct {
		SelectedDay string `json:"selectedDay"`
		IsToday     bool   `json:"isToday"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode day: %v", err)
	}
	if want := today.AddDate(0, 0, -1).Format("2006-01-02"); got.SelectedDay != want || got.IsToday {
		t.Errorf("prev day = %+v, want %s and not today", got, want)
	}

	rec = do(t, h, http.MethodPut, "/api/day", `{"date":"2026-01-02"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT day = %d", rec.Code)
	}
	if d := engine.SelectedDay(); d.Format("2006-01-02") != "2026-01-02" {
		t.Errorf("selected day = %v", d)
	}

	do(t, h, http.MethodPost, "/api/day/today", "")
	if !engine.IsToday() {
		t.Error("engine not back on today")
	}
}

func TestRecordStoreAcceptsAPIPrefix(t *testing.T) {
	repo := memory.NewRepository(nil)
	h := NewRecordStore(handlers.NewRecordHandler(repo, nil), nil)

	for _, path := range []string{"/barbers", "/api/barbers"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stock", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/stock = %d, want 404", rec.Code)
	}
}
