package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coach-storefront/internal/config"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/adapter"
	"coach-storefront/internal/infra/i18n"
	"coach-storefront/internal/infra/logging"
)

var _ adapter.ChatSender = (*CloudSender)(nil)

// CloudSender posts text messages through the WhatsApp Cloud API.
type CloudSender struct {
	baseURL       string
	phoneNumberID string
	token         string
	prefix        string
	coachName     string
	tr            *i18n.Translator
	client        *http.Client
	logger        *zerolog.Logger
}

func NewCloudSender(cfg config.WhatsAppConfig, tr *i18n.Translator, coachName string, timeout time.Duration, logger *zerolog.Logger) (*CloudSender, error) {
	if cfg.PhoneNumberID == "" || cfg.Token == "" {
		return nil, errors.New("whatsapp phone number id and token are required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := logger.With().Str("component", "WhatsAppSender").Logger()
	return &CloudSender{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.Token,
		prefix:        cfg.DefaultPrefix,
		coachName:     coachName,
		tr:            tr,
		client:        &http.Client{Timeout: timeout},
		logger:        &l,
	}, nil
}

// Recipient converts a normalized phone to the digits-only international form the API expects.
func Recipient(phone, defaultPrefix string) string {
	if strings.HasPrefix(phone, "+") {
		return phone[1:]
	}
	if len(phone) == 10 {
		return defaultPrefix + phone
	}
	return phone
}

// Text renders the chat message for a paid order.
func Text(tr *i18n.Translator, coachName string, o *model.Order) string {
	return tr.T("whatsapp_order_paid", o.Buyer.Name, o.Amount, o.Summary(), o.OrderRef, coachName)
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (s *CloudSender) SendOrderNotification(ctx context.Context, o *model.Order) error {
	if o == nil || o.Buyer.Phone == "" {
		return errors.New("order has no buyer phone")
	}
	msg := textMessage{MessagingProduct: "whatsapp", To: Recipient(o.Buyer.Phone, s.prefix), Type: "text"}
	msg.Text.Body = Text(s.tr, s.coachName, o)

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &ae)
		return fmt.Errorf("whatsapp send: http %d: code=%d %s", resp.StatusCode, ae.Error.Code, ae.Error.Message)
	}
	s.logger.Info().Str("order_ref", o.OrderRef).Str("to", logging.Mask(msg.To)).Msg("whatsapp message sent")
	return nil
}
