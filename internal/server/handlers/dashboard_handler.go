package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/service/reporting"
	"github.com/mamadbah2/barberdash/internal/service/syncengine"
)

const dayLayout = "2006-01-02"

// Engine is the part of the sync engine the dashboard drives.
type Engine interface {
	Snapshot() syncengine.State
	Location() *time.Location
	SurchargeAmount() float64
	LastRefresh() time.Time
	Refresh(ctx context.Context) error

	SelectedDay() time.Time
	IsToday() bool
	SelectDay(t time.Time) time.Time
	NextDay() time.Time
	PrevDay() time.Time
	Today() time.Time

	RecordSale(ctx context.Context, barberID, serviceID string) (*syncengine.Result, error)
	UndoLastSale(ctx context.Context, barberID, serviceID string) (*syncengine.Result, error)
	RemoveHistoryItem(ctx context.Context, id string) (*syncengine.Result, error)
	ClearHistory(ctx context.Context, barberID string, day time.Time) (*syncengine.Result, error)
	SetSurcharge(ctx context.Context, barberID, serviceID string, active bool) (*syncengine.Result, error)
	SetPrice(ctx context.Context, barberID, serviceID string, price float64) (*syncengine.Result, error)
	SetPaymentMethod(ctx context.Context, barberID, serviceID string, method models.PaymentMethod) (*syncengine.Result, error)

	UpsertBarber(ctx context.Context, b models.Barber) (models.Barber, *syncengine.Result, error)
	RemoveBarber(ctx context.Context, id string, confirm func(models.Barber) bool) (*syncengine.Result, error)
	UpdateCommissionRate(ctx context.Context, id string, rate float64) (*syncengine.Result, error)
	RenameBarber(ctx context.Context, id, name string) (*syncengine.Result, error)

	CreateAppointment(ctx context.Context, draft models.AppointmentDraft) (models.Appointment, *syncengine.Result, error)
	UpdateAppointment(ctx context.Context, id string, patch models.AppointmentPatch) (*syncengine.Result, error)
	CancelAppointment(ctx context.Context, id string) (*syncengine.Result, error)
	CompleteAppointment(ctx context.Context, id string) (*syncengine.Result, error)
	DeleteAppointment(ctx context.Context, id string) (*syncengine.Result, error)

	SaveService(ctx context.Context, def models.ServiceDefinition) (models.ServiceDefinition, *syncengine.Result, error)
	RemoveService(ctx context.Context, id string) (*syncengine.Result, error)
}

// ReportPublisher sends closing reports on demand.
type ReportPublisher interface {
	PublishDay(ctx context.Context, day time.Time) (reporting.ClosingReport, error)
}

var _ Engine = (*syncengine.Engine)(nil)

// DashboardHandler exposes the dashboard intents as a JSON API.
type DashboardHandler struct {
	engine  Engine
	reports ReportPublisher
	logger  *zap.Logger
}

// NewDashboardHandler constructs the dashboard HTTP adapter. reports may be
// nil when no closing report sink is configured.
func NewDashboardHandler(engine Engine, reports ReportPublisher, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{engine: engine, reports: reports, logger: logger}
}

type barberView struct {
	models.Barber
	Configs []models.ServiceConfig `json:"configs"`
	History []models.HistoryItem   `json:"history"`
	Revenue decimal.Decimal        `json:"revenue"`
	Split   reporting.Split        `json:"split"`
}

type stateView struct {
	SelectedDay     string                     `json:"selectedDay"`
	IsToday         bool                       `json:"isToday"`
	LastRefresh     time.Time                  `json:"lastRefresh"`
	SurchargeAmount float64                    `json:"surchargeAmount"`
	ScheduledCount  int                        `json:"scheduledCount"`
	Barbers         []barberView               `json:"barbers"`
	Catalog         []models.ServiceDefinition `json:"catalog"`
	Appointments    []models.Appointment       `json:"appointments"`
}

// State returns the mirror as seen on the selected day.
func (h *DashboardHandler) State(c *gin.Context) {
	snap := h.engine.Snapshot()
	loc := h.engine.Location()
	day := h.engine.SelectedDay()

	view := stateView{
		SelectedDay:     day.Format(dayLayout),
		IsToday:         h.engine.IsToday(),
		LastRefresh:     h.engine.LastRefresh(),
		SurchargeAmount: h.engine.SurchargeAmount(),
		ScheduledCount:  reporting.ScheduledCount(snap.Appointments, day, loc),
		Catalog:         snap.Catalog,
		Appointments:    reporting.DayAppointments(snap.Appointments, "", day, loc),
		Barbers:         make([]barberView, 0, len(snap.Barbers)),
	}
	for _, b := range snap.Barbers {
		history := snap.HistoryFor(b.ID, day, loc)
		revenue := reporting.DailyRevenue(history, b.ID, day, loc)
		view.Barbers = append(view.Barbers, barberView{
			Barber:  b,
			Configs: snap.ConfigsFor(b.ID),
			History: history,
			Revenue: revenue,
			Split:   reporting.CommissionSplit(revenue, b.CommissionRate),
		})
	}
	c.JSON(http.StatusOK, view)
}

// Refresh forces a refresh from the record store.
func (h *DashboardHandler) Refresh(c *gin.Context) {
	if err := h.engine.Refresh(c.Request.Context()); err != nil {
		h.logger.Warn("manual refresh failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lastRefresh": h.engine.LastRefresh()})
}

// Summary returns a barber's day panel.
func (h *DashboardHandler) Summary(c *gin.Context) {
	barber, day, ok := h.barberDay(c)
	if !ok {
		return
	}
	snap := h.engine.Snapshot()
	loc := h.engine.Location()
	c.JSON(http.StatusOK, gin.H{
		"summary":      reporting.Summarize(barber, snap.History, day, loc),
		"appointments": reporting.DayAppointments(snap.Appointments, barber.ID, day, loc),
		"upcoming":     reporting.UpcomingAppointments(snap.Appointments, barber.ID, day, loc),
	})
}

// Weekly returns a barber's Monday to Saturday totals.
func (h *DashboardHandler) Weekly(c *gin.Context) {
	barber, day, ok := h.barberDay(c)
	if !ok {
		return
	}
	snap := h.engine.Snapshot()
	c.JSON(http.StatusOK, reporting.WeeklyTotals(snap.History, barber.ID, day, barber.CommissionRate, h.engine.Location()))
}

// ShareText returns the WhatsApp text of a barber's day.
func (h *DashboardHandler) ShareText(c *gin.Context) {
	barber, day, ok := h.barberDay(c)
	if !ok {
		return
	}
	summary := reporting.Summarize(barber, h.engine.Snapshot().History, day, h.engine.Location())
	c.String(http.StatusOK, reporting.RenderText(summary))
}

// ExportCSV downloads a barber's day as CSV.
func (h *DashboardHandler) ExportCSV(c *gin.Context) {
	barber, day, ok := h.barberDay(c)
	if !ok {
		return
	}
	loc := h.engine.Location()
	summary := reporting.Summarize(barber, h.engine.Snapshot().History, day, loc)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reporting.CSVFilename(summary)))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := reporting.WriteCSV(c.Writer, summary, loc); err != nil {
		h.logger.Error("csv export failed", zap.String("barber_id", barber.ID), zap.Error(err))
	}
}

// RecordSale records one sale of a service.
func (h *DashboardHandler) RecordSale(c *gin.Context) {
	res, err := h.engine.RecordSale(c.Request.Context(), c.Param("id"), c.Param("service"))
	h.accepted(c, res, err, nil)
}

// UndoSale removes the latest matching sale of the selected day.
func (h *DashboardHandler) UndoSale(c *gin.Context) {
	res, err := h.engine.UndoLastSale(c.Request.Context(), c.Param("id"), c.Param("service"))
	h.accepted(c, res, err, nil)
}

type surchargeRequest struct {
	Active bool `json:"active"`
}

// SetSurcharge toggles the surcharge of a barber's service.
func (h *DashboardHandler) SetSurcharge(c *gin.Context) {
	var req surchargeRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.engine.SetSurcharge(c.Request.Context(), c.Param("id"), c.Param("service"), req.Active)
	h.accepted(c, res, err, nil)
}

type priceRequest struct {
	Price *float64 `json:"price" binding:"required"`
}

// SetPrice changes the current price of a barber's editable service.
func (h *DashboardHandler) SetPrice(c *gin.Context) {
	var req priceRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.engine.SetPrice(c.Request.Context(), c.Param("id"), c.Param("service"), *req.Price)
	h.accepted(c, res, err, nil)
}

type paymentRequest struct {
	Method models.PaymentMethod `json:"method" binding:"required"`
}

// SetPaymentMethod selects the payment method for the next sale.
func (h *DashboardHandler) SetPaymentMethod(c *gin.Context) {
	var req paymentRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.engine.SetPaymentMethod(c.Request.Context(), c.Param("id"), c.Param("service"), req.Method)
	h.accepted(c, res, err, nil)
}

// RemoveHistoryItem deletes one sale.
func (h *DashboardHandler) RemoveHistoryItem(c *gin.Context) {
	res, err := h.engine.RemoveHistoryItem(c.Request.Context(), c.Param("id"))
	h.accepted(c, res, err, nil)
}

// ClearHistory deletes a barber's sales of a day.
func (h *DashboardHandler) ClearHistory(c *gin.Context) {
	barber, day, ok := h.barberDay(c)
	if !ok {
		return
	}
	res, err := h.engine.ClearHistory(c.Request.Context(), barber.ID, day)
	h.accepted(c, res, err, nil)
}

// CreateBarber adds a barber with default configs.
func (h *DashboardHandler) CreateBarber(c *gin.Context) {
	var b models.Barber
	if !h.bind(c, &b) {
		return
	}
	b.ID = ""
	saved, res, err := h.engine.UpsertBarber(c.Request.Context(), b)
	h.accepted(c, res, err, saved)
}

type barberPatch struct {
	Name           *string  `json:"name"`
	CommissionRate *float64 `json:"commissionRate"`
}

// UpdateBarber renames a barber or changes the commission rate.
func (h *DashboardHandler) UpdateBarber(c *gin.Context) {
	var req barberPatch
	if !h.bind(c, &req) {
		return
	}
	if req.Name == nil && req.CommissionRate == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	var results []*syncengine.Result
	if req.Name != nil {
		res, err := h.engine.RenameBarber(ctx, id, *req.Name)
		if err != nil {
			h.accepted(c, nil, err, nil)
			return
		}
		results = append(results, res)
	}
	if req.CommissionRate != nil {
		res, err := h.engine.UpdateCommissionRate(ctx, id, *req.CommissionRate)
		if err != nil {
			h.accepted(c, nil, err, nil)
			return
		}
		results = append(results, res)
	}
	h.acceptedAll(c, results)
}

// RemoveBarber deletes a barber and its configs. The caller confirms with
// ?confirm=true.
func (h *DashboardHandler) RemoveBarber(c *gin.Context) {
	confirmed := c.Query("confirm") == "true"
	res, err := h.engine.RemoveBarber(c.Request.Context(), c.Param("id"), func(models.Barber) bool {
		return confirmed
	})
	h.accepted(c, res, err, nil)
}

// ListAppointments returns the appointments of a day, optionally for one
// barber, and the upcoming ones after it.
func (h *DashboardHandler) ListAppointments(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	barberID := c.Query("barberId")
	snap := h.engine.Snapshot()
	loc := h.engine.Location()
	c.JSON(http.StatusOK, gin.H{
		"day":            day.Format(dayLayout),
		"appointments":   reporting.DayAppointments(snap.Appointments, barberID, day, loc),
		"upcoming":       reporting.UpcomingAppointments(snap.Appointments, barberID, day, loc),
		"scheduledCount": reporting.ScheduledCount(snap.Appointments, day, loc),
	})
}

// CreateAppointment books an appointment.
func (h *DashboardHandler) CreateAppointment(c *gin.Context) {
	var draft models.AppointmentDraft
	if !h.bind(c, &draft) {
		return
	}
	appt, res, err := h.engine.CreateAppointment(c.Request.Context(), draft)
	h.accepted(c, res, err, appt)
}

// UpdateAppointment applies a partial update.
func (h *DashboardHandler) UpdateAppointment(c *gin.Context) {
	var patch models.AppointmentPatch
	if !h.bind(c, &patch) {
		return
	}
	res, err := h.engine.UpdateAppointment(c.Request.Context(), c.Param("id"), patch)
	h.accepted(c, res, err, nil)
}

// CancelAppointment cancels a scheduled appointment.
func (h *DashboardHandler) CancelAppointment(c *gin.Context) {
	res, err := h.engine.CancelAppointment(c.Request.Context(), c.Param("id"))
	h.accepted(c, res, err, nil)
}

// CompleteAppointment marks a scheduled appointment as done.
func (h *DashboardHandler) CompleteAppointment(c *gin.Context) {
	res, err := h.engine.CompleteAppointment(c.Request.Context(), c.Param("id"))
	h.accepted(c, res, err, nil)
}

// DeleteAppointment removes an appointment.
func (h *DashboardHandler) DeleteAppointment(c *gin.Context) {
	res, err := h.engine.DeleteAppointment(c.Request.Context(), c.Param("id"))
	h.accepted(c, res, err, nil)
}

// Catalog lists the service catalog.
func (h *DashboardHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot().Catalog)
}

// SaveService adds a service or edits one.
func (h *DashboardHandler) SaveService(c *gin.Context) {
	var def models.ServiceDefinition
	if !h.bind(c, &def) {
		return
	}
	if id := c.Param("id"); id != "" {
		def.ID = id
	}
	saved, res, err := h.engine.SaveService(c.Request.Context(), def)
	h.accepted(c, res, err, saved)
}

// RemoveService deletes an editable service.
func (h *DashboardHandler) RemoveService(c *gin.Context) {
	res, err := h.engine.RemoveService(c.Request.Context(), c.Param("id"))
	h.accepted(c, res, err, nil)
}

type dayRequest struct {
	Date string `json:"date" binding:"required"`
}

// Day returns the selected day.
func (h *DashboardHandler) Day(c *gin.Context) {
	h.respondDay(c, h.engine.SelectedDay())
}

// SelectDay jumps to a given date.
func (h *DashboardHandler) SelectDay(c *gin.Context) {
	var req dayRequest
	if !h.bind(c, &req) {
		return
	}
	day, err := time.ParseInLocation(dayLayout, req.Date, h.engine.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	h.respondDay(c, h.engine.SelectDay(day))
}

// NextDay moves the selection forward.
func (h *DashboardHandler) NextDay(c *gin.Context) { h.respondDay(c, h.engine.NextDay()) }

// PrevDay moves the selection back.
func (h *DashboardHandler) PrevDay(c *gin.Context) { h.respondDay(c, h.engine.PrevDay()) }

// Today returns the selection to the current day.
func (h *DashboardHandler) Today(c *gin.Context) { h.respondDay(c, h.engine.Today()) }

// PublishReport sends the closing report of a day to the configured sinks.
func (h *DashboardHandler) PublishReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no report sink configured"})
		return
	}
	day, ok := h.day(c)
	if !ok {
		return
	}
	report, err := h.reports.PublishDay(c.Request.Context(), day)
	if err != nil {
		h.logger.Error("closing report failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *DashboardHandler) respondDay(c *gin.Context, day time.Time) {
	c.JSON(http.StatusOK, gin.H{
		"selectedDay": day.Format(dayLayout),
		"isToday":     h.engine.IsToday(),
	})
}

// day reads ?day=YYYY-MM-DD, defaulting to the selected day.
func (h *DashboardHandler) day(c *gin.Context) (time.Time, bool) {
	raw := c.Query("day")
	if raw == "" {
		return h.engine.SelectedDay(), true
	}
	day, err := time.ParseInLocation(dayLayout, raw, h.engine.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}

func (h *DashboardHandler) barberDay(c *gin.Context) (models.Barber, time.Time, bool) {
	barber, found := h.engine.Snapshot().Barber(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": syncengine.ErrUnknownBarber.Error()})
		return models.Barber{}, time.Time{}, false
	}
	day, ok := h.day(c)
	if !ok {
		return models.Barber{}, time.Time{}, false
	}
	return barber, day, true
}

func (h *DashboardHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Warn("invalid dashboard payload", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// accepted answers a mutation. The local change is already visible, so the
// default answer is 202 without waiting for the store. With ?wait=true the
// handler waits for the writes and reports their outcome.
func (h *DashboardHandler) accepted(c *gin.Context, res *syncengine.Result, err error, data any) {
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	body := gin.H{"operation": res.Operation()}
	if data != nil {
		body["data"] = data
	}
	if c.Query("wait") != "true" {
		c.JSON(http.StatusAccepted, body)
		return
	}
	if err := res.Wait(c.Request.Context()); err != nil {
		h.logger.Warn("remote write failed", zap.String("operation", res.Operation()), zap.Error(err))
		body["error"] = err.Error()
		c.JSON(http.StatusBadGateway, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *DashboardHandler) acceptedAll(c *gin.Context, results []*syncengine.Result) {
	ops := make([]string, 0, len(results))
	for _, res := range results {
		ops = append(ops, res.Operation())
	}
	body := gin.H{"operation": strings.Join(ops, ",")}
	if c.Query("wait") != "true" {
		c.JSON(http.StatusAccepted, body)
		return
	}
	for _, res := range results {
		if err := res.Wait(c.Request.Context()); err != nil {
			body["error"] = err.Error()
			c.JSON(http.StatusBadGateway, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, syncengine.ErrUnknownBarber),
		errors.Is(err, syncengine.ErrUnknownService),
		errors.Is(err, syncengine.ErrUnknownHistoryItem),
		errors.Is(err, syncengine.ErrUnknownAppointment):
		return http.StatusNotFound
	case errors.Is(err, syncengine.ErrLastBarber),
		errors.Is(err, syncengine.ErrNotConfirmed),
		errors.Is(err, syncengine.ErrServiceLocked),
		errors.Is(err, syncengine.ErrServiceExists),
		errors.Is(err, syncengine.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, syncengine.ErrEngineClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadRequest
	}
}
