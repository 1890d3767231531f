package agent

import (
	"strings"
	"testing"
	"time"
)

func sampleSummary() *Summary {
	return &Summary{
		RunID:         "0192e4a0-test",
		Prompt:        "Analyze AAPL",
		Model:         "test-model",
		FinalResponse: "Recommendation: BUY 10 shares of AAPL.",
		Iterations:    3,
		ToolsExecuted: 2,
		ToolCalls: []ToolCallRecord{
			{Tool: "get_market_overview", Input: "{}", Output: `{"S&P 500": {"current": 6450}}`, OK: true, Attempts: 1, Iteration: 1},
			{Tool: "get_stock_data", Input: `{"symbol":"AAPL"}`, Output: `{"current_price": 231.5}`, OK: true, Attempts: 1, Iteration: 2},
		},
		WebSearchUsed:  true,
		WebSearchCount: 1,
		Searches: []SearchRecord{
			{Query: "AAPL earnings", Results: 2, At: time.Now()},
		},
		Citations: []Citation{
			{URL: "https://example.com/a", Title: "Apple Q3 Earnings", Snippet: "Revenue up 5%", Query: "AAPL earnings"},
		},
		ConversationLength: 7,
		Success:            true,
		TerminationReason:  TerminationCompleted,
	}
}

func TestSummaryRender(t *testing.T) {
	var sb strings.Builder
	sampleSummary().Render(&sb)
	out := sb.String()

	for _, want := range []string{
		"EXECUTION RESULTS",
		"Iterations used: 3",
		"Tools executed: 2",
		"Success: true",
		"get_market_overview({})",
		"Recommendation: BUY 10 shares of AAPL.",
		"WEB SEARCH USED: 1 search(es) performed",
		"1. AAPL earnings",
		"Apple Q3 Earnings",
		"URL: https://example.com/a",
		"Summary: Revenue up 5%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q", want)
		}
	}
}

func TestSummaryRender_NoSearch(t *testing.T) {
	s := sampleSummary()
	s.WebSearchUsed = false
	s.WebSearchCount = 0
	s.Searches = nil
	s.Citations = nil

	var sb strings.Builder
	s.Render(&sb)

	if strings.Contains(sb.String(), "WEB SEARCH USED") {
		t.Error("search section rendered without searches")
	}
}

func TestSummaryRender_FailedToolAnnotated(t *testing.T) {
	s := sampleSummary()
	s.ToolCalls = append(s.ToolCalls, ToolCallRecord{
		Tool: "web_search", Input: "{}", Output: "Error executing tool (timeout): ...",
		OK: false, Kind: "timeout", Attempts: 3, Iteration: 3,
	})

	var sb strings.Builder
	s.Render(&sb)

	if !strings.Contains(sb.String(), "[failed: timeout]") {
		t.Error("failed tool call not annotated")
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip = %q", got)
	}
	if got := clip(strings.Repeat("a", 20), 10); got != strings.Repeat("a", 10)+"..." {
		t.Errorf("clip = %q", got)
	}
	if got := clip("line1\nline2", 100); got != "line1 line2" {
		t.Errorf("newlines should flatten: %q", got)
	}
}
