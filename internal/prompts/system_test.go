package prompts

import (
	"strings"
	"testing"
)

func TestSystem_DefaultBase(t *testing.T) {
	got := System("", "")

	if !strings.Contains(got, "Tycho") {
		t.Error("default base prompt missing")
	}
	if !strings.Contains(got, "SEQUENTIAL TOOL EXECUTION") {
		t.Error("sequential instructions missing")
	}
	if !strings.Contains(got, "No previous tool results available.") {
		t.Error("empty digest placeholder missing")
	}
}

func TestSystem_CustomBaseAndDigest(t *testing.T) {
	digest := ResultsDigest([]ToolDigest{
		{Tool: "get_stock_data", Input: `{"symbol":"AAPL"}`, Result: `{"current_price": 231.5}`},
	}, nil)

	got := System("You are a cautious analyst.", digest)

	if !strings.HasPrefix(got, "You are a cautious analyst.") {
		t.Error("custom base not used as prefix")
	}
	if !strings.Contains(got, "get_stock_data") {
		t.Error("digest not interpolated")
	}
	if strings.Contains(got, "No previous tool results available.") {
		t.Error("placeholder shown despite non-empty digest")
	}
}

func TestResultsDigest_Empty(t *testing.T) {
	if got := ResultsDigest(nil, nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestResultsDigest_TruncatesLongResults(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := ResultsDigest([]ToolDigest{{Tool: "web_search", Input: "{}", Result: long}}, nil)

	if !strings.Contains(got, "...") {
		t.Error("long result not truncated")
	}
	if strings.Contains(got, long) {
		t.Error("full result leaked into digest")
	}
}

func TestResultsDigest_SearchHistory(t *testing.T) {
	got := ResultsDigest(
		[]ToolDigest{{Tool: "web_search", Input: `{"query":"AAPL news"}`, Result: "5 results"}},
		[]string{"AAPL news", "Fed rate decision"},
	)

	if !strings.Contains(got, "Web Search History (2 searches):") {
		t.Errorf("search history header missing:\n%s", got)
	}
	if !strings.Contains(got, "Query: 'Fed rate decision'") {
		t.Error("query listing missing")
	}
}

func TestInsufficientData(t *testing.T) {
	got := InsufficientData(1, 2)
	if !strings.Contains(got, "1 distinct data source") || !strings.Contains(got, "at least 2") {
		t.Errorf("unexpected nudge text: %q", got)
	}
}
