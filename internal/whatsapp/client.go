package whatsapp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/openmercato/mercato/config"
)

// Client sends outbound messages through the hosted messaging graph API.
// Every call carries a timeout; a hung graph endpoint must never hang an
// admin action or the webhook handler.
type Client struct {
	cfg     config.WhatsappConfig
	timeout time.Duration
}

func NewClient(cfg config.WhatsappConfig) *Client {
	return &Client{cfg: cfg, timeout: 10 * time.Second}
}

// Enabled reports whether outbound sending is configured.
func (c *Client) Enabled() bool {
	return c.cfg.AccessToken != "" && c.cfg.PhoneNumberID != ""
}

type sendTextPayload struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textPayload `json:"text"`
}

type textPayload struct {
	Body string `json:"body"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText delivers one text message to phone (E.164, digits only).
func (c *Client) SendText(ctx context.Context, phone, body string) error {
	if !c.Enabled() {
		return errors.New("whatsapp sender not configured")
	}

	endpoint := fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.cfg.GraphBaseURL, "/"), c.cfg.PhoneNumberID)
	payload := sendTextPayload{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             textPayload{Body: body},
	}

	var code int
	var apiErr graphError
	err := gout.POST(endpoint).
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(gout.H{"Authorization": "Bearer " + c.cfg.AccessToken}).
		SetJSON(payload).
		Code(&code).
		BindJSON(&apiErr).
		Do()
	if err != nil {
		zap.L().Warn("whatsapp send failed", zap.String("to", phone), zap.Error(err))
		return err
	}
	if code >= 300 {
		zap.L().Warn("whatsapp send rejected",
			zap.String("to", phone), zap.Int("status", code), zap.String("message", apiErr.Error.Message))
		return errors.Errorf("graph api status %d: %s", code, apiErr.Error.Message)
	}
	zap.L().Info("whatsapp message sent", zap.String("to", phone))
	return nil
}

// DeepLink builds the wa.me share link that opens a chat with phone and
// the given prefilled text.
func DeepLink(phone, text string) string {
	clean := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	link := "https://wa.me/" + clean
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link
}
