package llm

import (
	"encoding/json"
	"testing"
)

func TestConvertToAnthropic_SystemExtraction(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You are a trading analyst."},
		{Role: "user", Content: "Analyze AAPL"},
	}

	result, system := convertToAnthropic(messages)

	if system != "You are a trading analyst." {
		t.Errorf("system = %q, want %q", system, "You are a trading analyst.")
	}
	if len(result) != 1 {
		t.Fatalf("got %d messages, want 1", len(result))
	}
	if result[0].Role != "user" {
		t.Errorf("role = %q, want user", result[0].Role)
	}
}

func TestConvertToAnthropic_MultipleSystemMessages(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "Part one."},
		{Role: "system", Content: "Part two."},
		{Role: "user", Content: "hi"},
	}

	_, system := convertToAnthropic(messages)

	want := "Part one.\n\nPart two."
	if system != want {
		t.Errorf("system = %q, want %q", system, want)
	}
}

func TestConvertToAnthropic_ToolCalls(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: "What's AAPL trading at?"},
		{
			Role:    "assistant",
			Content: "Let me check.",
			ToolCalls: []ToolCall{
				{
					ID: "toolu_01",
					Function: FunctionCall{
						Name:      "get_stock_data",
						Arguments: map[string]any{"symbol": "AAPL"},
					},
				},
			},
		},
		{Role: "tool", Content: `{"price": 231.5}`, ToolCallID: "toolu_01"},
	}

	result, _ := convertToAnthropic(messages)

	if len(result) != 3 {
		t.Fatalf("got %d messages, want 3", len(result))
	}

	// Assistant message becomes content blocks
	blocks, ok := result[1].Content.([]anthropicContent)
	if !ok {
		t.Fatalf("assistant content is %T, want []anthropicContent", result[1].Content)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (text + tool_use)", len(blocks))
	}
	if blocks[0].Type != "text" || blocks[0].Text != "Let me check." {
		t.Errorf("block 0 = %+v, want text block", blocks[0])
	}
	if blocks[1].Type != "tool_use" || blocks[1].Name != "get_stock_data" || blocks[1].ID != "toolu_01" {
		t.Errorf("block 1 = %+v, want tool_use block", blocks[1])
	}

	// Tool response becomes a user message with tool_result
	if result[2].Role != "user" {
		t.Errorf("tool response role = %q, want user", result[2].Role)
	}
	toolBlocks, ok := result[2].Content.([]anthropicContent)
	if !ok || len(toolBlocks) != 1 {
		t.Fatalf("tool response content = %+v", result[2].Content)
	}
	if toolBlocks[0].Type != "tool_result" || toolBlocks[0].ToolUseID != "toolu_01" {
		t.Errorf("tool_result block = %+v", toolBlocks[0])
	}
}

func TestConvertToAnthropic_SynthesizesToolUseID(t *testing.T) {
	messages := []Message{
		{
			Role: "assistant",
			ToolCalls: []ToolCall{
				{Function: FunctionCall{Name: "hold_stock"}},
			},
		},
	}

	result, _ := convertToAnthropic(messages)

	blocks := result[0].Content.([]anthropicContent)
	if blocks[0].ID == "" {
		t.Error("expected a synthesized tool_use ID for a call without one")
	}
}

func TestConvertToolsToAnthropic(t *testing.T) {
	tools := []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        "get_stock_data",
				"description": "Fetch stock price data",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"symbol": map[string]any{"type": "string"},
					},
					"required": []string{"symbol"},
				},
			},
		},
	}

	result := convertToolsToAnthropic(tools)

	if len(result) != 1 {
		t.Fatalf("got %d tools, want 1", len(result))
	}
	if result[0].Name != "get_stock_data" {
		t.Errorf("name = %q", result[0].Name)
	}
	if result[0].Description != "Fetch stock price data" {
		t.Errorf("description = %q", result[0].Description)
	}
	if result[0].InputSchema == nil {
		t.Error("input schema is nil")
	}
}

func TestConvertToolsToAnthropic_Empty(t *testing.T) {
	if got := convertToolsToAnthropic(nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	// Malformed entries are skipped
	if got := convertToolsToAnthropic([]map[string]any{{"type": "function"}}); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestConvertFromAnthropic_TextResponse(t *testing.T) {
	resp := &anthropicResponse{
		Model: "claude-sonnet-4-20250514",
		Role:  "assistant",
		Content: []anthropicContent{
			{Type: "text", Text: "Recommendation: HOLD."},
		},
		StopReason: "end_turn",
		Usage:      anthropicUsage{InputTokens: 100, OutputTokens: 20},
	}

	result := convertFromAnthropic(resp)

	if result.Message.Content != "Recommendation: HOLD." {
		t.Errorf("content = %q", result.Message.Content)
	}
	if len(result.Message.ToolCalls) != 0 {
		t.Errorf("unexpected tool calls: %v", result.Message.ToolCalls)
	}
	if result.StopReason != "end_turn" {
		t.Errorf("stop reason = %q", result.StopReason)
	}
	if result.InputTokens != 100 || result.OutputTokens != 20 {
		t.Errorf("usage = %d/%d", result.InputTokens, result.OutputTokens)
	}
}

func TestConvertFromAnthropic_ToolUse(t *testing.T) {
	resp := &anthropicResponse{
		Role: "assistant",
		Content: []anthropicContent{
			{Type: "text", Text: "Checking the market."},
			{
				Type:  "tool_use",
				ID:    "toolu_02",
				Name:  "get_market_overview",
				Input: map[string]any{},
			},
		},
		StopReason: "tool_use",
	}

	result := convertFromAnthropic(resp)

	if result.Message.Content != "Checking the market." {
		t.Errorf("content = %q", result.Message.Content)
	}
	if len(result.Message.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(result.Message.ToolCalls))
	}
	tc := result.Message.ToolCalls[0]
	if tc.ID != "toolu_02" || tc.Function.Name != "get_market_overview" {
		t.Errorf("tool call = %+v", tc)
	}
}

func TestAnthropicRequest_TemperatureOmitted(t *testing.T) {
	req := anthropicRequest{
		Model:     "claude-sonnet-4-20250514",
		Messages:  []anthropicMessage{{Role: "user", Content: "hi"}},
		MaxTokens: 16,
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, present := decoded["temperature"]; present {
		t.Error("temperature should be omitted when unset")
	}
	if _, present := decoded["tools"]; present {
		t.Error("tools should be omitted when empty")
	}
}
