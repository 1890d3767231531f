package agent

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ToolCallRecord captures one executed tool call for the run summary.
type ToolCallRecord struct {
	Tool      string        `json:"tool"`
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	OK        bool          `json:"ok"`
	Kind      string        `json:"kind,omitempty"`
	Attempts  int           `json:"attempts"`
	Duration  time.Duration `json:"duration"`
	Iteration int           `json:"iteration"`
}

// SearchRecord is one web search performed during a run.
type SearchRecord struct {
	Query   string    `json:"query"`
	Results int       `json:"results"`
	At      time.Time `json:"at"`
}

// Citation is a source surfaced by web search, deduplicated by URL
// across the whole run.
type Citation struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
	Query   string `json:"query"`
}

// Summary is the structured outcome of a conversation run.
type Summary struct {
	RunID              string           `json:"run_id"`
	Prompt             string           `json:"prompt"`
	Model              string           `json:"model"`
	FinalResponse      string           `json:"final_response"`
	Iterations         int              `json:"iterations_used"`
	ToolsExecuted      int              `json:"tools_executed"`
	ToolCalls          []ToolCallRecord `json:"tool_summary,omitempty"`
	WebSearchUsed      bool             `json:"web_search_used"`
	WebSearchCount     int              `json:"web_search_count"`
	Searches           []SearchRecord   `json:"web_search_history,omitempty"`
	Citations          []Citation       `json:"citations,omitempty"`
	ConversationLength int              `json:"conversation_length"`
	InputTokens        int              `json:"input_tokens"`
	OutputTokens       int              `json:"output_tokens"`
	Success            bool             `json:"success"`
	TerminationReason  string           `json:"termination_reason"`
	StartedAt          time.Time        `json:"started_at"`
	CompletedAt        time.Time        `json:"completed_at"`
}

const rule = "================================================================================"

// Render writes a human-readable report of the run to w.
func (s *Summary) Render(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, " EXECUTION RESULTS")
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w, "\nEXECUTION SUMMARY:")
	fmt.Fprintf(w, "   - Iterations used: %d\n", s.Iterations)
	fmt.Fprintf(w, "   - Tools executed: %d\n", s.ToolsExecuted)
	fmt.Fprintf(w, "   - Conversation length: %d\n", s.ConversationLength)
	fmt.Fprintf(w, "   - Success: %t\n", s.Success)
	if s.TerminationReason != "" {
		fmt.Fprintf(w, "   - Termination: %s\n", s.TerminationReason)
	}

	if len(s.ToolCalls) > 0 {
		fmt.Fprintln(w, "\nTOOLS EXECUTED:")
		for i, tc := range s.ToolCalls {
			status := ""
			if !tc.OK {
				status = fmt.Sprintf(" [failed: %s]", tc.Kind)
			}
			fmt.Fprintf(w, "   %d. %s(%s) -> %s%s\n", i+1, tc.Tool, tc.Input, clip(tc.Output, 100), status)
		}
	}

	fmt.Fprintln(w, "\nFINAL AGENT RESPONSE:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintln(w, s.FinalResponse)
	fmt.Fprintln(w, strings.Repeat("-", 40))

	if s.WebSearchUsed {
		fmt.Fprintf(w, "\nWEB SEARCH USED: %d search(es) performed\n", s.WebSearchCount)

		fmt.Fprintln(w, "\nSearch Queries:")
		for i, sr := range s.Searches {
			fmt.Fprintf(w, "%d. %s\n", i+1, sr.Query)
		}

		if len(s.Citations) > 0 {
			fmt.Fprintln(w, "\nSources & Citations:")
			for i, c := range s.Citations {
				fmt.Fprintf(w, "%d. %s\n", i+1, c.Title)
				fmt.Fprintf(w, "   URL: %s\n", c.URL)
				if c.Snippet != "" {
					fmt.Fprintf(w, "   Summary: %s\n", c.Snippet)
				}
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
}

func clip(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
