package prompts

import (
	"fmt"
	"strings"
)

// baseSystemTemplate is the default system prompt used when the config
// does not provide one. It frames the agent as a research-driven stock
// analyst producing recommendations, never real orders.
const baseSystemTemplate = `You are Tycho, a stock trading analyst agent.

## Your Job
Research the market and individual stocks, then produce a clear BUY, SELL,
or HOLD recommendation with reasoning. You never place real orders — the
buy_stock, sell_stock, and hold_stock tools record recommendations only.

## How to Work
- Start broad: check overall market conditions before diving into a symbol.
- Use web_search for news, earnings, and anything your other tools can't see.
- Ground every claim in data you actually retrieved this session.

## Rules
- State a confidence level with your final recommendation.
- If data is missing or a tool fails, say so and work with what you have.
- Keep the final analysis focused: data, reasoning, recommendation.`

// BaseSystemPrompt returns the default system prompt. Although it currently
// requires no interpolation, it follows the package convention of an exported
// function to keep the interface consistent and allow future parameterization.
func BaseSystemPrompt() string {
	return baseSystemTemplate
}

// sequentialInstructions is appended to every system prompt so the model
// understands the tool-loop contract: gather data across multiple rounds,
// then finish with a text-only analysis. The single format verb receives
// the digest of tool results gathered so far.
const sequentialInstructions = `

IMPORTANT INSTRUCTIONS FOR SEQUENTIAL TOOL EXECUTION:

1. You can call multiple tools in sequence to gather comprehensive information before making a final decision.

2. After each tool call, analyze the results and determine if you need more information:
   - If you need more data, call additional tools
   - If you have sufficient information, provide your final analysis and recommendation

3. When making tool calls:
   - Be strategic about which tools to use and in what order
   - Build upon previous tool results
   - Gather diverse data points for comprehensive analysis

4. For your final response:
   - Summarize all the information you gathered
   - Provide clear reasoning for your decision
   - Include confidence level in your recommendation
   - No more tool calls should be made in your final response

5. Available information from previous tool calls:
%s

Remember: You have the freedom to call multiple tools sequentially to gather all necessary information before making your final decision.`

// System builds the full system prompt from the configured base prompt
// plus the sequential-execution instructions and a digest of tool results
// gathered so far. The digest changes every round, so the loop calls this
// before each model request.
func System(base, digest string) string {
	if base == "" {
		base = baseSystemTemplate
	}
	if digest == "" {
		digest = "No previous tool results available."
	}
	return base + fmt.Sprintf(sequentialInstructions, digest)
}

// ForceDecision is sent as a user turn when the iteration cap is reached
// without a final text response. The accompanying request carries no tool
// definitions, so the model cannot comply with anything but text.
const ForceDecision = "Please provide your final analysis and recommendation based on all the information gathered so far. Do not make any more tool calls."

// InsufficientData nudges the model to keep researching when it tried to
// finish before consulting enough distinct data sources.
func InsufficientData(gathered, required int) string {
	return fmt.Sprintf(
		"You have only consulted %d distinct data source(s) so far, but a sound recommendation needs at least %d. Please gather more data before giving your final analysis.",
		gathered, required,
	)
}

// ToolDigest is one line of the research digest: a tool invocation and a
// truncated view of what it returned.
type ToolDigest struct {
	Tool   string
	Input  string
	Result string
}

// digestResultLimit caps how much of each tool result makes it into the
// system prompt digest.
const digestResultLimit = 200

// ResultsDigest formats prior tool results and search queries for
// inclusion in the system prompt. Returns "" when there is nothing to
// report, which System renders as a no-results placeholder.
func ResultsDigest(results []ToolDigest, searchQueries []string) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Previous tool results:\n")
	for i, r := range results {
		result := r.Result
		if len(result) > digestResultLimit {
			result = result[:digestResultLimit] + "..."
		}
		fmt.Fprintf(&sb, "%d. %s(%s) -> %s\n", i+1, r.Tool, r.Input, result)
	}

	if len(searchQueries) > 0 {
		fmt.Fprintf(&sb, "\nWeb Search History (%d searches):\n", len(searchQueries))
		for i, q := range searchQueries {
			fmt.Fprintf(&sb, "  %d. Query: '%s'\n", i+1, q)
		}
	}

	return sb.String()
}
