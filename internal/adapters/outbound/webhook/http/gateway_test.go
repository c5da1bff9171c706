//go:build !integration

package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

func lowBalanceEvent() dto.AlertEvent {
	return dto.AlertEvent{
		Type:       "paymaster_balance_low",
		Severity:   "warning",
		State:      "triggered",
		ProjectID:  "proj1",
		Category:   "EVM",
		Chain:      "base",
		Message:    "paymaster balance below threshold",
		Details:    map[string]any{"balance_usd": "12.50"},
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotifySignsAndPostsEvent(t *testing.T) {
	const secret = "alert-secret"

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		eventID := r.Header.Get("X-Paymaster-Event-Id")
		if eventID == "" {
			t.Fatalf("expected event id header")
		}
		if got := r.Header.Get("Idempotency-Key"); got != eventID {
			t.Fatalf("expected idempotency key %s, got %s", eventID, got)
		}
		if got := r.Header.Get("X-Paymaster-Event-Type"); got != "paymaster_balance_low" {
			t.Fatalf("expected event type header, got %s", got)
		}
		timestamp := strings.TrimSpace(r.Header.Get("X-Paymaster-Timestamp"))
		nonce := strings.TrimSpace(r.Header.Get("X-Paymaster-Nonce"))
		if timestamp == "" || nonce == "" {
			t.Fatalf("expected timestamp and nonce headers")
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read request body: %v", err)
		}
		expected := BuildExpectedSignatureHeader(secret, timestamp, nonce, eventID, "paymaster_balance_low", body)
		if got := r.Header.Get("X-Paymaster-Signature"); got != expected {
			t.Fatalf("expected signature %s, got %s", expected, got)
		}

		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload["event_id"] != eventID || payload["chain"] != "base" || payload["state"] != "triggered" {
			t.Fatalf("unexpected payload %v", payload)
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}))
	defer server.Close()

	gateway := NewGateway(Config{URL: server.URL, HMACSecret: secret})
	if appErr := gateway.Notify(context.Background(), lowBalanceEvent()); appErr != nil {
		t.Fatalf("expected no error, got %+v", appErr)
	}
}

func TestNotifyNon2xxReturnsUnavailable(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	gateway := NewGateway(Config{URL: server.URL, HMACSecret: "alert-secret"})
	appErr := gateway.Notify(context.Background(), lowBalanceEvent())
	if appErr == nil {
		t.Fatalf("expected error")
	}
	if appErr.Code != "alert_delivery_failed" || appErr.Type != apperrors.TypeUnavailable {
		t.Fatalf("expected unavailable alert_delivery_failed, got %+v", appErr)
	}
	if appErr.Details["status_code"] != nethttp.StatusBadGateway {
		t.Fatalf("expected status detail, got %v", appErr.Details)
	}
}

func TestNotifyRequiresConfiguration(t *testing.T) {
	appErr := NewGateway(Config{HMACSecret: "alert-secret"}).Notify(context.Background(), lowBalanceEvent())
	if appErr == nil || appErr.Code != "alert_webhook_not_configured" {
		t.Fatalf("expected alert_webhook_not_configured, got %+v", appErr)
	}

	appErr = NewGateway(Config{URL: "https://hooks.example.com/alerts"}).Notify(context.Background(), lowBalanceEvent())
	if appErr == nil || appErr.Code != "alert_webhook_hmac_secret_missing" {
		t.Fatalf("expected alert_webhook_hmac_secret_missing, got %+v", appErr)
	}
}

func TestNotifyRequiresEventType(t *testing.T) {
	gateway := NewGateway(Config{URL: "https://hooks.example.com/alerts", HMACSecret: "alert-secret"})
	event := lowBalanceEvent()
	event.Type = " "

	appErr := gateway.Notify(context.Background(), event)
	if appErr == nil || appErr.Code != "alert_event_type_missing" {
		t.Fatalf("expected alert_event_type_missing, got %+v", appErr)
	}
}
