package whatsapp

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/config"
	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/pkg/common"
	"github.com/openmercato/mercato/pkg/metrics"
)

// Service wires the webhook handlers, responder and outbound client.
type Service struct {
	db        *gorm.DB
	cfg       config.WhatsappConfig
	client    *Client
	responder *Responder
}

func NewService(db *gorm.DB, cfg config.WhatsappConfig, responder *Responder) *Service {
	return &Service{
		db:        db,
		cfg:       cfg,
		client:    NewClient(cfg),
		responder: responder,
	}
}

func (s *Service) Client() *Client {
	return s.client
}

// webhookPayload is the subset of the Cloud API delivery envelope the
// responder needs.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// VerifyHandler implements the webhook verification handshake: echo the
// challenge when the shared token matches, 403 otherwise.
func (s *Service) VerifyHandler(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && token != "" && token == s.cfg.VerifyToken {
		return c.String(http.StatusOK, challenge)
	}
	zap.L().Warn("webhook verification rejected", zap.String("mode", mode))
	return c.NoContent(http.StatusForbidden)
}

// ReceiveHandler processes inbound message deliveries. Always answers
// 200 so the provider does not retry storms; per-message failures are
// logged and skipped.
func (s *Service) ReceiveHandler(c echo.Context) error {
	var payload webhookPayload
	if err := c.Bind(&payload); err != nil {
		zap.L().Warn("webhook payload parse failed", zap.Error(err))
		return c.NoContent(http.StatusOK)
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				s.handleMessage(c, msg)
			}
		}
	}
	return c.NoContent(http.StatusOK)
}

func (s *Service) handleMessage(c echo.Context, msg inboundMessage) {
	if msg.Type != "" && msg.Type != "text" {
		return
	}
	body := strings.TrimSpace(msg.Text.Body)
	if body == "" || msg.From == "" {
		return
	}

	record := domain.WebhookMessage{
		ID:        common.UUIDint64(),
		MessageId: msg.ID,
		From:      msg.From,
		Body:      body,
	}
	if msg.ID == "" {
		// the message_id column is unique, a missing provider id still
		// needs a distinct key
		record.MessageId = uuid.NewString()
	}

	reply, rule := s.responder.Reply(body)
	record.Matched = rule

	// providers redeliver on slow responses; the unique message_id
	// insert is the idempotency gate, so concurrent redeliveries can
	// never both reach the send below
	if err := s.db.Create(&record).Error; err != nil {
		zap.L().Debug("webhook message not recorded, reply suppressed",
			zap.String("message_id", record.MessageId), zap.Error(err))
		return
	}
	metrics.Record(metrics.MetricWebhookMsg, 1)

	if !s.client.Enabled() {
		zap.L().Info("responder reply generated, sender not configured",
			zap.String("from", msg.From), zap.String("rule", rule))
		return
	}
	if err := s.client.SendText(c.Request().Context(), msg.From, reply); err != nil {
		zap.L().Warn("responder reply send failed", zap.String("to", msg.From), zap.Error(err))
	}
}
