package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	cryptorand "crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/google/uuid"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	maxErrorBodyBytes  = 1024
	nonceByteLength    = 16
)

type Config struct {
	URL        string
	HMACSecret string
	Timeout    time.Duration
}

// Gateway posts alert events to an operator webhook, signed with
// HMAC-SHA256 over timestamp, nonce, event id, event type and body.
type Gateway struct {
	url        string
	hmacSecret string
	client     *nethttp.Client
	now        func() time.Time
}

var _ portsout.AlertNotifier = (*Gateway)(nil)

func NewGateway(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &Gateway{
		url:        strings.TrimSpace(cfg.URL),
		hmacSecret: strings.TrimSpace(cfg.HMACSecret),
		client: &nethttp.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

func (g *Gateway) Notify(ctx context.Context, event dto.AlertEvent) *apperrors.AppError {
	if g == nil || g.client == nil || g.url == "" {
		return apperrors.NewInternal(
			"alert_webhook_not_configured",
			"alert webhook is not configured",
			nil,
		)
	}
	if g.hmacSecret == "" {
		return apperrors.NewInternal(
			"alert_webhook_hmac_secret_missing",
			"alert webhook hmac secret is missing",
			nil,
		)
	}
	eventType := strings.TrimSpace(event.Type)
	if eventType == "" {
		return apperrors.NewValidation(
			"alert_event_type_missing",
			"alert event type is required",
			nil,
		)
	}

	eventID := uuid.NewString()
	body, err := json.Marshal(alertPayload{EventID: eventID, AlertEvent: event})
	if err != nil {
		return apperrors.NewInternal(
			"alert_payload_encode_failed",
			"failed to encode alert payload",
			map[string]any{"error": err.Error()},
		)
	}

	timestamp := strconv.FormatInt(g.now().UTC().Unix(), 10)
	nonce, nonceErr := webhookNonce()
	if nonceErr != nil {
		return apperrors.NewInternal(
			"alert_nonce_generation_failed",
			"failed to generate alert nonce",
			map[string]any{"error": nonceErr.Error()},
		)
	}
	signature := webhookSignature(g.hmacSecret, timestamp, nonce, eventID, eventType, body)

	request, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternal(
			"alert_request_build_failed",
			"failed to build alert request",
			map[string]any{"error": err.Error()},
		)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Idempotency-Key", eventID)
	request.Header.Set("X-Paymaster-Event-Id", eventID)
	request.Header.Set("X-Paymaster-Event-Type", eventType)
	request.Header.Set("X-Paymaster-Timestamp", timestamp)
	request.Header.Set("X-Paymaster-Nonce", nonce)
	request.Header.Set("X-Paymaster-Signature", "sha256="+signature)

	response, err := g.client.Do(request)
	if err != nil {
		return apperrors.NewUnavailable(
			"alert_delivery_failed",
			"failed to send alert request",
			map[string]any{"error": err.Error()},
		)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		bodyPreview := ""
		raw, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
		if readErr == nil {
			bodyPreview = strings.TrimSpace(string(raw))
		}
		return apperrors.NewUnavailable(
			"alert_delivery_failed",
			"alert endpoint returned non-2xx status",
			map[string]any{
				"status_code": response.StatusCode,
				"body":        bodyPreview,
			},
		)
	}

	return nil
}

type alertPayload struct {
	EventID string `json:"event_id"`
	dto.AlertEvent
}

func webhookNonce() (string, error) {
	raw := make([]byte, nonceByteLength)
	if _, err := cryptorand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func webhookSignature(
	secret string,
	timestamp string,
	nonce string,
	eventID string,
	eventType string,
	body []byte,
) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(nonce))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventType))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildExpectedSignatureHeader lets receivers verify X-Paymaster-Signature.
func BuildExpectedSignatureHeader(
	secret string,
	timestamp string,
	nonce string,
	eventID string,
	eventType string,
	body []byte,
) string {
	return fmt.Sprintf("sha256=%s", webhookSignature(secret, timestamp, nonce, eventID, eventType, body))
}
