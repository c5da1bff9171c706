//go:build !integration

package lognotifier

import (
	"bytes"
	"context"
	stdlog "log"
	"strings"
	"testing"

	"paymasterhub/internal/application/dto"
)

func TestNotifierWritesKeyValueLine(t *testing.T) {
	var buffer bytes.Buffer
	notifier := NewNotifier(stdlog.New(&buffer, "", 0))

	appErr := notifier.Notify(context.Background(), dto.AlertEvent{
		Type:      "deployment_dead_lettered",
		Severity:  "critical",
		State:     "triggered",
		ProjectID: "proj1",
		Category:  "SVM",
		Message:   "automatic retries exhausted",
	})
	if appErr != nil {
		t.Fatalf("expected no error, got %+v", appErr)
	}

	line := buffer.String()
	for _, want := range []string{"type=deployment_dead_lettered", "severity=critical", "project_id=proj1", "category=SVM"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestNilNotifierIsNoop(t *testing.T) {
	var notifier *Notifier
	if appErr := notifier.Notify(context.Background(), dto.AlertEvent{Type: "x"}); appErr != nil {
		t.Fatalf("expected no error, got %+v", appErr)
	}
}
