package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/typixhq/typix/pkg/config"
	"github.com/typixhq/typix/pkg/feedback"
	"github.com/typixhq/typix/pkg/model"
)

type echoCorrector struct {
	fixes map[string]string
	calls int
}

func (c *echoCorrector) Correct(_ context.Context, req model.CorrectionRequest) (*model.CorrectionResult, error) {
	c.calls++
	corrected, ok := c.fixes[req.Text]
	if !ok {
		corrected = req.Text
	}
	return &model.CorrectionResult{RequestID: "r", Corrected: corrected}, nil
}

func TestEngineAssemblesAnalyzer(t *testing.T) {
	fc := &echoCorrector{fixes: map[string]string{
		"teh quick brown fox": "the quick brown fox",
	}}
	e, err := New(config.DefaultConfig(), "session-1", Options{Corrector: fc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if err := e.Analyzer.Analyze(context.Background(), "teh quick brown fox", model.RequestContext{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	st := e.Analyzer.Snapshot()
	if len(st.Issues) != 1 || st.Issues[0].Original != "teh" {
		t.Errorf("issues = %+v", st.Issues)
	}
}

func TestEnginePersistsCacheAcrossInstances(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "cache.db")

	fc := &echoCorrector{fixes: map[string]string{
		"teh quick brown fox": "the quick brown fox",
	}}

	first, err := New(cfg, "session-1", Options{Corrector: fc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Analyzer.Analyze(context.Background(), "teh quick brown fox", model.RequestContext{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Same session id: the persisted entry survives and the second engine
	// serves the analysis from cache.
	second, err := New(cfg, "session-1", Options{Corrector: fc})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	if err := second.Analyzer.Analyze(context.Background(), "teh quick brown fox", model.RequestContext{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fc.calls != 1 {
		t.Errorf("expected cached correction, backend calls = %d", fc.calls)
	}
	if len(second.Analyzer.Snapshot().Issues) != 1 {
		t.Error("cached correction must still yield the issue")
	}
}

func TestEngineUsesProvidedSink(t *testing.T) {
	sink := feedback.NewMemorySink()
	fc := &echoCorrector{fixes: map[string]string{
		"teh quick brown fox": "the quick brown fox",
	}}
	e, err := New(config.DefaultConfig(), "session-1", Options{Corrector: fc, Feedback: sink})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := e.Analyzer.Analyze(context.Background(), "teh quick brown fox", model.RequestContext{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	st := e.Analyzer.Snapshot()
	e.Analyzer.DismissIssue(st.Issues[0], "teh quick brown fox")

	// Close must not close the caller-owned sink.
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sink.Send(context.Background(), feedback.Event{RequestID: "after"}); err != nil {
		t.Errorf("caller-owned sink must stay open, got %v", err)
	}
}
