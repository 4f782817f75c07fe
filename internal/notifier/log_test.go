package notifier

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/amishk599/jobradar/internal/model"
)

func TestLogNotifierWritesEachJob(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	n := NewLogNotifier(logger)

	jobs := []model.Job{
		sampleJob("Backend Engineer", "Acme"),
		sampleJob("SRE", "Globex"),
	}
	if err := n.Notify(jobs); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	out := buf.String()
	for _, j := range jobs {
		if !strings.Contains(out, j.Title) {
			t.Errorf("output missing title %q", j.Title)
		}
	}
	if !strings.Contains(out, "score=") {
		t.Error("output missing score attribute")
	}
}

func TestLogNotifierEmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := n.Notify(nil); err != nil {
		t.Fatalf("Notify(nil) = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty batch, got %q", buf.String())
	}
}
