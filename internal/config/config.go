// Package config handles Tycho configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/tycho/config.yaml, /etc/tycho/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tycho", "config.yaml"))
	}

	paths = append(paths, "/etc/tycho/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Tycho configuration.
type Config struct {
	Agent        AgentConfig        `yaml:"agent"`
	Conversation ConversationConfig `yaml:"conversation"`
	Decision     DecisionConfig     `yaml:"decision_framework"`
	Anthropic    AnthropicConfig    `yaml:"anthropic"`
	Search       SearchConfig       `yaml:"search"`
	Market       MarketConfig       `yaml:"market"`
	Prompt       string             `yaml:"prompt"`
	DataDir      string             `yaml:"data_dir"`
	LogLevel     string             `yaml:"log_level"`
}

// AgentConfig defines the model and sampling parameters.
type AgentConfig struct {
	// Name is the model identifier sent to the provider.
	Name         string  `yaml:"name"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// ConversationConfig bounds the tool-calling loop.
type ConversationConfig struct {
	// MaxIterations is the hard cap on model rounds per run.
	MaxIterations int `yaml:"max_iterations"`
	// RequireFinalDecision controls whether hitting the iteration cap
	// without a final answer is reported as a failed run.
	RequireFinalDecision bool `yaml:"require_final_decision"`
	// ToolTimeoutSec bounds a single tool execution attempt, in seconds.
	ToolTimeoutSec int `yaml:"tool_timeout_sec"`
	// MaxRetries is the number of retries after a failed tool attempt.
	MaxRetries int `yaml:"max_retries"`
	// RetryDelaySec is the constant delay between tool attempts, in seconds.
	RetryDelaySec int `yaml:"retry_delay_sec"`
}

// ToolTimeout returns the tool attempt timeout as a duration.
func (c ConversationConfig) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSec) * time.Second
}

// RetryDelay returns the retry delay as a duration.
func (c ConversationConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySec) * time.Second
}

// DecisionConfig shapes the final recommendation the model must produce.
type DecisionConfig struct {
	// RequireReasoning asks the model to show its reasoning in the final answer.
	RequireReasoning bool `yaml:"require_reasoning"`
	// MinDataPoints is the minimum number of distinct successful tool
	// executions before a plain-text response is accepted as final.
	MinDataPoints int `yaml:"min_data_points"`
	// ConfidenceThreshold is surfaced to the model as the minimum
	// confidence it should report alongside a recommendation.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearchConfig defines web search provider settings.
type SearchConfig struct {
	// Provider selects the primary backend: "duckduckgo" (no key
	// required), "brave", or "searxng".
	Provider string `yaml:"provider"`
	Brave    struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"brave"`
	SearXNG struct {
		URL string `yaml:"url"`
	} `yaml:"searxng"`
}

// MarketConfig defines market data settings.
type MarketConfig struct {
	// BaseURL overrides the Yahoo Finance endpoint. Empty means the
	// public API. Used mainly for testing against local fixtures.
	BaseURL string `yaml:"base_url"`
}

// Load reads configuration from a YAML file. Environment variables in
// the file body are expanded before parsing, so keys like api_key can
// reference ${ANTHROPIC_API_KEY}.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:        "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Temperature: 0.1,
		},
		Conversation: ConversationConfig{
			MaxIterations:        10,
			RequireFinalDecision: true,
			ToolTimeoutSec:       30,
			MaxRetries:           2,
			RetryDelaySec:        1,
		},
		Decision: DecisionConfig{
			RequireReasoning:    true,
			MinDataPoints:       2,
			ConfidenceThreshold: 0.7,
		},
		Search: SearchConfig{
			Provider: "duckduckgo",
		},
		Prompt: "Analyze the current market conditions",
	}
}
