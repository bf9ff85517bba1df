// Package chat answers operator commands sent to the shop's WhatsApp number.
package chat

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/service/reporting"
	"github.com/mamadbah2/barberdash/pkg/clients/whatsapp"
)

const (
	signaturePrefix = "sha256="
	replyTimeout    = 10 * time.Second
	timeLayout      = "15:04"
)

var (
	// ErrVerification is returned when a webhook subscription check fails.
	ErrVerification = errors.New("webhook verification failed")
	// ErrBadSignature is returned when a callback body is not signed with
	// the app secret.
	ErrBadSignature = errors.New("invalid webhook signature")
)

// MessagingService describes the operations the webhook handler performs.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	VerifySignature(body []byte, header string) error
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
}

// Service replies to operator commands with figures from the dashboard
// mirror. Only numbers listed in WHATSAPP_REPORT_TO are answered.
type Service struct {
	cfg     config.WhatsAppConfig
	client  whatsapp.Client
	source  reporting.Source
	reports *reporting.Service
	allowed map[string]bool
	logger  *zap.Logger
	now     func() time.Time
}

var _ MessagingService = (*Service)(nil)

// NewService wires a chat service on top of the dashboard mirror.
func NewService(cfg config.WhatsAppConfig, client whatsapp.Client, source reporting.Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := map[string]bool{}
	for _, n := range cfg.Recipients() {
		allowed[n] = true
	}
	return &Service{
		cfg:     cfg,
		client:  client,
		source:  source,
		reports: reporting.NewService(source, logger),
		allowed: allowed,
		logger:  logger,
		now:     time.Now,
	}
}

// VerifyWebhookToken answers Meta's subscription challenge.
func (s *Service) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", fmt.Errorf("%w: missing mode or verify token", ErrVerification)
	}
	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("%w: unsupported hub.mode %s", ErrVerification, mode)
	}
	if subtle.ConstantTimeCompare([]byte(verifyToken), []byte(s.cfg.VerifyToken)) != 1 {
		return "", fmt.Errorf("%w: invalid verify token", ErrVerification)
	}
	return challenge, nil
}

// VerifySignature checks the X-Hub-Signature-256 header against the app
// secret. Without a configured secret every body is accepted.
func (s *Service) VerifySignature(body []byte, header string) error {
	if s.cfg.AppSecret == "" {
		return nil
	}
	sig, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, []byte(s.cfg.AppSecret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// HandleWebhook answers every inbound message of the payload. The first
// reply failure is returned after all messages were tried.
func (s *Service) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to answer inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}
	return firstErr
}

func (s *Service) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	if !s.allowed[msg.From] {
		s.logger.Warn("ignoring message from unknown number", zap.String("from", msg.From))
		return nil
	}
	text := extractMessageText(msg)
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type))
		return nil
	}

	cmd := models.ParseChatCommand(text)
	s.logger.Info("operator command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	if _, err := s.client.SendText(ctx, msg.From, s.Answer(cmd)); err != nil {
		return fmt.Errorf("reply to %s: %w", msg.From, err)
	}
	return nil
}

// Answer renders the reply to cmd for the current day.
func (s *Service) Answer(cmd models.ChatCommand) string {
	today := s.now()
	switch cmd.Type {
	case models.ChatClosing:
		return reporting.RenderClosing(s.reports.Build(today))
	case models.ChatSummary:
		return s.summary(strings.Join(cmd.Args, " "), today)
	case models.ChatAgenda:
		return s.agenda(today)
	case models.ChatHelp:
		return helpText
	default:
		return "Comando não reconhecido.\n\n" + helpText
	}
}

const helpText = `*Comandos disponíveis:*
- fechamento: relatório do dia de todos os barbeiros
- resumo <barbeiro>: faturamento do dia de um barbeiro
- agenda: agendamentos de hoje
- ajuda: esta mensagem`

func (s *Service) summary(who string, day time.Time) string {
	snap := s.source.Snapshot()
	if who == "" {
		return "Informe o barbeiro, por exemplo: resumo " + firstName(snap.Barbers)
	}
	for _, b := range snap.Barbers {
		if b.ID == who || strings.EqualFold(b.Name, who) {
			return reporting.RenderText(reporting.Summarize(b, snap.History, day, s.source.Location()))
		}
	}
	names := make([]string, 0, len(snap.Barbers))
	for _, b := range snap.Barbers {
		names = append(names, b.Name)
	}
	return fmt.Sprintf("Barbeiro %q não encontrado. Barbeiros: %s", who, strings.Join(names, ", "))
}

func (s *Service) agenda(day time.Time) string {
	snap := s.source.Snapshot()
	loc := s.source.Location()

	var b strings.Builder
	fmt.Fprintf(&b, "📆 *Agenda de %s*", models.DayStart(day, loc).Format("02/01/2006"))
	n := 0
	for _, a := range reporting.DayAppointments(snap.Appointments, "", day, loc) {
		if a.Status != models.AppointmentScheduled {
			continue
		}
		barber := a.BarberID
		if found, ok := snap.Barber(a.BarberID); ok {
			barber = found.Name
		}
		fmt.Fprintf(&b, "\n- %s %s (%s) com %s", a.ScheduledTime.In(loc).Format(timeLayout), a.ClientName, a.ServiceType, barber)
		n++
	}
	if n == 0 {
		b.WriteString("\nNenhum agendamento.")
	}
	return b.String()
}

func firstName(barbers []models.Barber) string {
	if len(barbers) == 0 {
		return "João"
	}
	return barbers[0].Name
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}
	if msg.Interactive != nil {
		if msg.Interactive.ButtonReply != nil {
			return msg.Interactive.ButtonReply.ID
		}
		if msg.Interactive.ListReply != nil {
			return msg.Interactive.ListReply.ID
		}
	}
	return ""
}
