package agent

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tycho-agent/tycho/internal/llm"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := OpenRunStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(id string, startedAt time.Time) *RunRecord {
	return &RunRecord{
		ID:                id,
		Prompt:            "Analyze AAPL",
		Model:             "test-model",
		Iterations:        3,
		MaxIterations:     10,
		ToolsExecuted:     2,
		InputTokens:       300,
		OutputTokens:      80,
		Success:           true,
		TerminationReason: TerminationCompleted,
		ToolsCalled:       map[string]int{"get_stock_data": 1, "web_search": 1},
		Citations: []Citation{
			{URL: "https://example.com/a", Title: "Source A", Query: "AAPL news"},
		},
		Messages: []llm.Message{
			{Role: "user", Content: "Analyze AAPL"},
			{Role: "assistant", Content: "BUY."},
		},
		FinalResponse: "BUY.",
		StartedAt:     startedAt,
		CompletedAt:   startedAt.Add(4 * time.Second),
		DurationMs:    4000,
	}
}

func TestRunStoreRecordAndGet(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := store.Record(sampleRecord("run-1", now)); err != nil {
		t.Fatalf("record: %v", err)
	}

	rec, err := store.Get("run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if rec.Prompt != "Analyze AAPL" || rec.Model != "test-model" {
		t.Errorf("identity = %q/%q", rec.Prompt, rec.Model)
	}
	if rec.Iterations != 3 || rec.MaxIterations != 10 {
		t.Errorf("iterations = %d/%d", rec.Iterations, rec.MaxIterations)
	}
	if !rec.Success || rec.TerminationReason != TerminationCompleted {
		t.Errorf("outcome = %t/%q", rec.Success, rec.TerminationReason)
	}
	if rec.ToolsCalled["get_stock_data"] != 1 {
		t.Errorf("tools_called = %v", rec.ToolsCalled)
	}
	if len(rec.Citations) != 1 || rec.Citations[0].URL != "https://example.com/a" {
		t.Errorf("citations = %+v", rec.Citations)
	}
	if len(rec.Messages) != 2 || rec.Messages[1].Content != "BUY." {
		t.Errorf("messages = %+v", rec.Messages)
	}
	if !rec.StartedAt.Equal(now) {
		t.Errorf("started_at = %v, want %v", rec.StartedAt, now)
	}
}

func TestRunStoreGetMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get("nope"); err == nil {
		t.Fatal("expected error for missing record")
	}
}

func TestRunStoreList(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().UTC()

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		if err := store.Record(sampleRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d records", len(all))
	}
	// Newest first
	if all[0].ID != "run-3" || all[2].ID != "run-1" {
		t.Errorf("order = %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	limited, err := store.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[0].ID != "run-3" {
		t.Errorf("limited = %d records, first %s", len(limited), limited[0].ID)
	}
}

func TestRecordFromSummary(t *testing.T) {
	s := sampleSummary()
	s.StartedAt = time.Now().Add(-2 * time.Second)
	s.CompletedAt = time.Now()

	messages := []llm.Message{{Role: "user", Content: s.Prompt}}
	rec := RecordFromSummary(s, 10, messages)

	if rec.ID != s.RunID {
		t.Errorf("ID = %q", rec.ID)
	}
	if rec.MaxIterations != 10 {
		t.Errorf("max iterations = %d", rec.MaxIterations)
	}
	if rec.ToolsCalled["get_market_overview"] != 1 || rec.ToolsCalled["get_stock_data"] != 1 {
		t.Errorf("tools_called = %v", rec.ToolsCalled)
	}
	if rec.DurationMs <= 0 {
		t.Errorf("duration = %d", rec.DurationMs)
	}
	if len(rec.Messages) != 1 {
		t.Errorf("messages = %d", len(rec.Messages))
	}
}
