// Package agent implements the sequential tool-calling conversation loop.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tycho-agent/tycho/internal/config"
	"github.com/tycho-agent/tycho/internal/llm"
	"github.com/tycho-agent/tycho/internal/prompts"
	"github.com/tycho-agent/tycho/internal/search"
	"github.com/tycho-agent/tycho/internal/tools"
)

// Termination reason constants.
const (
	TerminationCompleted     = "completed"
	TerminationMaxIterations = "max_iterations"
)

// webSearchToolName is the tool whose results feed citation tracking.
const webSearchToolName = "web_search"

// Loop drives a multi-round conversation with the model, executing
// tool calls between rounds until the model produces a final text
// answer or the iteration cap forces one.
type Loop struct {
	logger   *slog.Logger
	llm      llm.Client
	registry *tools.Registry
	executor *tools.Executor

	model                string
	maxTokens            int
	temperature          float64
	systemPrompt         string
	maxIterations        int
	requireFinalDecision bool
	minDataPoints        int

	store *RunStore
}

// NewLoop creates a conversation loop from configuration.
func NewLoop(logger *slog.Logger, llmClient llm.Client, registry *tools.Registry, executor *tools.Executor, cfg *config.Config) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger:               logger,
		llm:                  llmClient,
		registry:             registry,
		executor:             executor,
		model:                cfg.Agent.Name,
		maxTokens:            cfg.Agent.MaxTokens,
		temperature:          cfg.Agent.Temperature,
		systemPrompt:         cfg.Agent.SystemPrompt,
		maxIterations:        cfg.Conversation.MaxIterations,
		requireFinalDecision: cfg.Conversation.RequireFinalDecision,
		minDataPoints:        cfg.Decision.MinDataPoints,
	}
}

// SetStore configures run persistence. When set, every completed run
// is recorded for the history command.
func (l *Loop) SetStore(s *RunStore) {
	l.store = s
}

// runState accumulates everything a run produces beyond the raw
// message history.
type runState struct {
	runID      string
	messages   []llm.Message
	digests    []prompts.ToolDigest
	toolCalls  []ToolCallRecord
	searches   []SearchRecord
	citations  []Citation
	seenURLs   map[string]bool
	succeeded  map[string]bool // distinct tools with at least one success
	inTokens   int
	outTokens  int
	iterations int
	nudged     bool
}

// Run executes a full conversation for the given prompt and returns a
// structured summary. The model is called at most MaxIterations times
// with tools; if no final answer emerged by then, one last tool-free
// call forces a text response.
func (l *Loop) Run(ctx context.Context, prompt string) (*Summary, error) {
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	runID, _ := uuid.NewV7()
	st := &runState{
		runID:     runID.String(),
		messages:  []llm.Message{{Role: "user", Content: prompt}},
		seenURLs:  make(map[string]bool),
		succeeded: make(map[string]bool),
	}

	toolDefs := l.registry.List()
	startTime := time.Now()

	l.logger.Info("run started",
		"run_id", st.runID,
		"prompt", truncate(prompt, 200),
		"model", l.model,
		"tools_available", len(toolDefs),
		"max_iterations", l.maxIterations,
	)

	var finalText string
	var termination string

	for st.iterations < l.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}

		st.iterations++
		iterStart := time.Now()

		resp, err := l.chat(ctx, st, toolDefs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("run cancelled: %w", ctx.Err())
			}
			// Transport and auth failures are fatal. Tool failures are
			// folded into the conversation, but a model we cannot reach
			// leaves nothing to continue with.
			l.logger.Error("model call failed",
				"run_id", st.runID,
				"iter", st.iterations,
				"error", err,
			)
			return nil, fmt.Errorf("model call (iteration %d): %w", st.iterations, err)
		}

		st.messages = append(st.messages, resp.Message)

		l.logger.Info("model response",
			"run_id", st.runID,
			"iter", st.iterations,
			"tool_calls", len(resp.Message.ToolCalls),
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
			"elapsed", time.Since(iterStart).Round(time.Millisecond),
		)

		if len(resp.Message.ToolCalls) == 0 {
			if nudge, ok := l.needMoreData(st); ok {
				l.logger.Info("nudging for more data",
					"run_id", st.runID,
					"iter", st.iterations,
					"distinct_sources", len(st.succeeded),
					"required", l.minDataPoints,
				)
				st.nudged = true
				st.messages = append(st.messages, llm.Message{Role: "user", Content: nudge})
				continue
			}

			finalText = resp.Message.Content
			termination = TerminationCompleted
			break
		}

		l.executeToolCalls(ctx, st, resp.Message.ToolCalls)
	}

	if termination == "" {
		termination = TerminationMaxIterations
		l.logger.Warn("max iterations reached, forcing final response",
			"run_id", st.runID,
			"max_iterations", l.maxIterations,
		)
		finalText = l.forceFinal(ctx, st)
	}

	summary := l.buildSummary(st, prompt, finalText, termination, startTime)
	l.record(summary, st)
	return summary, nil
}

// chat makes one model call with the current history and a freshly
// built system prompt carrying the research digest.
func (l *Loop) chat(ctx context.Context, st *runState, toolDefs []map[string]any) (*llm.ChatResponse, error) {
	system := prompts.System(l.systemPrompt, prompts.ResultsDigest(st.digests, searchQueries(st.searches)))

	resp, err := l.llm.Chat(ctx, &llm.ChatRequest{
		Model:       l.model,
		System:      system,
		Messages:    st.messages,
		Tools:       toolDefs,
		MaxTokens:   l.maxTokens,
		Temperature: l.temperature,
	})
	if err != nil {
		return nil, err
	}

	st.inTokens += resp.InputTokens
	st.outTokens += resp.OutputTokens
	return resp, nil
}

// needMoreData decides whether a text-only response should be bounced
// back for more research. At most one nudge per run, and never on the
// final allowed iteration.
func (l *Loop) needMoreData(st *runState) (string, bool) {
	if st.nudged || l.minDataPoints <= 0 {
		return "", false
	}
	if st.iterations >= l.maxIterations {
		return "", false
	}
	if len(st.succeeded) >= l.minDataPoints {
		return "", false
	}
	return prompts.InsufficientData(len(st.succeeded), l.minDataPoints), true
}

// executeToolCalls runs every tool call from one assistant turn and
// appends the results as tool messages.
func (l *Loop) executeToolCalls(ctx context.Context, st *runState, calls []llm.ToolCall) {
	for _, tc := range calls {
		argsJSON := "{}"
		if tc.Function.Arguments != nil {
			if b, err := json.Marshal(tc.Function.Arguments); err == nil {
				argsJSON = string(b)
			}
		}

		l.logger.Info("tool exec",
			"run_id", st.runID,
			"iter", st.iterations,
			"tool", tc.Function.Name,
			"args", truncate(argsJSON, 200),
		)

		res := l.executor.Execute(ctx, tc.ID, tc.Function.Name, tc.Function.Arguments)

		content := res.Output
		if !res.OK {
			content = fmt.Sprintf("Error executing tool (%s): %s", res.Kind, res.Error)
			l.logger.Warn("tool exec failed",
				"run_id", st.runID,
				"tool", tc.Function.Name,
				"kind", res.Kind,
				"attempts", res.Attempts,
				"error", res.Error,
			)
		} else {
			st.succeeded[tc.Function.Name] = true
			if tc.Function.Name == webSearchToolName {
				l.trackSearch(st, res.Output)
			}
		}

		st.toolCalls = append(st.toolCalls, ToolCallRecord{
			Tool:      tc.Function.Name,
			Input:     argsJSON,
			Output:    content,
			OK:        res.OK,
			Kind:      res.Kind,
			Attempts:  res.Attempts,
			Duration:  res.Duration,
			Iteration: st.iterations,
		})
		st.digests = append(st.digests, prompts.ToolDigest{
			Tool:   tc.Function.Name,
			Input:  argsJSON,
			Result: content,
		})
		st.messages = append(st.messages, llm.Message{
			Role:       "tool",
			Content:    content,
			ToolCallID: tc.ID,
		})
	}
}

// trackSearch parses a successful web_search payload, recording the
// query and collecting citations. Sources already cited (same URL) are
// skipped so repeated searches don't duplicate the bibliography.
func (l *Loop) trackSearch(st *runState, output string) {
	var resp search.ToolResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		l.logger.Debug("unparseable web_search payload", "run_id", st.runID, "error", err)
		return
	}

	st.searches = append(st.searches, SearchRecord{
		Query:   resp.Query,
		Results: len(resp.Sources),
		At:      time.Now(),
	})

	for _, src := range resp.Sources {
		if src.URL == "" || st.seenURLs[src.URL] {
			continue
		}
		st.seenURLs[src.URL] = true
		st.citations = append(st.citations, Citation{
			URL:     src.URL,
			Title:   src.Title,
			Snippet: src.Snippet,
			Query:   resp.Query,
		})
	}

	l.logger.Debug("tracked web search",
		"run_id", st.runID,
		"query", resp.Query,
		"citations_total", len(st.citations),
	)
}

// forceFinal makes one last model call with no tool definitions so the
// model can only answer in text. Returns "" when even that fails.
func (l *Loop) forceFinal(ctx context.Context, st *runState) string {
	st.messages = append(st.messages, llm.Message{
		Role:    "user",
		Content: prompts.ForceDecision,
	})

	resp, err := l.chat(ctx, st, nil)
	if err != nil {
		l.logger.Error("forced final response failed", "run_id", st.runID, "error", err)
		return ""
	}

	st.messages = append(st.messages, resp.Message)
	return resp.Message.Content
}

// buildSummary assembles the run summary.
func (l *Loop) buildSummary(st *runState, prompt, finalText, termination string, startTime time.Time) *Summary {
	success := finalText != ""
	if termination == TerminationMaxIterations && finalText == "" {
		success = !l.requireFinalDecision
	}

	return &Summary{
		RunID:              st.runID,
		Prompt:             prompt,
		Model:              l.model,
		FinalResponse:      finalText,
		Iterations:         st.iterations,
		ToolsExecuted:      len(st.toolCalls),
		ToolCalls:          st.toolCalls,
		WebSearchUsed:      len(st.searches) > 0,
		WebSearchCount:     len(st.searches),
		Searches:           st.searches,
		Citations:          st.citations,
		ConversationLength: len(st.messages),
		InputTokens:        st.inTokens,
		OutputTokens:       st.outTokens,
		Success:            success,
		TerminationReason:  termination,
		StartedAt:          startTime,
		CompletedAt:        time.Now(),
	}
}

// record logs completion and persists the run when a store is set.
func (l *Loop) record(s *Summary, st *runState) {
	l.logger.Info("run completed",
		"run_id", s.RunID,
		"iterations", s.Iterations,
		"tools_executed", s.ToolsExecuted,
		"web_searches", s.WebSearchCount,
		"success", s.Success,
		"termination", s.TerminationReason,
		"input_tokens", s.InputTokens,
		"output_tokens", s.OutputTokens,
		"elapsed", s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond),
	)

	if l.store == nil {
		return
	}

	if err := l.store.Record(RecordFromSummary(s, l.maxIterations, st.messages)); err != nil {
		l.logger.Warn("failed to persist run record", "run_id", s.RunID, "error", err)
	}
}

func searchQueries(searches []SearchRecord) []string {
	if len(searches) == 0 {
		return nil
	}
	queries := make([]string, len(searches))
	for i, s := range searches {
		queries[i] = s.Query
	}
	return queries
}

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
