package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// Config holds SMS gateway configuration.
type Config struct {
	GatewayURL string        `env:"SMS_GATEWAY_URL"`
	APIKey     string        `env:"SMS_API_KEY"`
	SenderID   string        `env:"SMS_SENDER_ID"`
	Timeout    time.Duration `env:"SMS_HTTP_TIMEOUT" envDefault:"10s"`
}

// HTTPProvider submits messages to an HTTP SMS gateway with a form-encoded
// quick-send API.
type HTTPProvider struct {
	gatewayURL string
	apiKey     string
	senderID   string
	client     *http.Client
}

// NewHTTPProvider creates the gateway-backed provider.
func NewHTTPProvider(cfg Config) (*HTTPProvider, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: GatewayURL is required", ErrInvalidConfig)
	}
	if cfg.SenderID == "" {
		return nil, fmt.Errorf("%w: SenderID is required", ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPProvider{
		gatewayURL: cfg.GatewayURL,
		apiKey:     cfg.APIKey,
		senderID:   cfg.SenderID,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return "http-gateway" }

// gatewayResponse is the JSON envelope the gateway answers with.
type gatewayResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Code      int    `json:"code"`
	Reason    string `json:"reason"`
}

// SendSMS implements Provider.
func (p *HTTPProvider) SendSMS(ctx context.Context, to, body string) (SendResult, error) {
	form := url.Values{}
	form.Set("senderid", p.senderID)
	form.Set("sendMethod", "quick")
	form.Set("msgType", "text")
	form.Set("msg", body)
	form.Set("mobile", to)
	form.Set("duplicatecheck", "true")
	form.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.gatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, errors.Join(channel.ErrPermanentProvider, ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return SendResult{}, errors.Join(channel.ErrTransientProvider, ErrSendFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return SendResult{}, errors.Join(channel.ErrTransientProvider, ErrSendFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return SendResult{}, &RejectionError{Code: throttledRejectionCode, Reason: "gateway throttled"}
	case resp.StatusCode >= 500:
		return SendResult{}, errors.Join(channel.ErrTransientProvider, ErrSendFailed,
			fmt.Errorf("gateway returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		if rej := decodeRejection(raw); rej != nil {
			return SendResult{}, rej
		}
		return SendResult{}, errors.Join(channel.ErrPermanentProvider, ErrSendFailed,
			fmt.Errorf("gateway returned %d: %s", resp.StatusCode, raw))
	}

	var gw gatewayResponse
	if err := json.Unmarshal(raw, &gw); err != nil {
		return SendResult{}, errors.Join(channel.ErrTransientProvider, ErrSendFailed,
			fmt.Errorf("decode gateway response: %w", err))
	}
	if !strings.EqualFold(gw.Status, "success") {
		return SendResult{}, &RejectionError{Code: gw.Code, Reason: gw.Reason}
	}

	return SendResult{MessageID: gw.MessageID}, nil
}

// decodeRejection extracts a coded rejection from an error body, nil when
// the body does not carry one.
func decodeRejection(raw []byte) *RejectionError {
	var gw gatewayResponse
	if err := json.Unmarshal(raw, &gw); err != nil || gw.Code == 0 {
		return nil
	}
	return &RejectionError{Code: gw.Code, Reason: gw.Reason}
}
