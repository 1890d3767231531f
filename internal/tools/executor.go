package tools

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Failure kinds reported on a Result. The model sees these as part of
// the normalized error payload, so the vocabulary is intentionally
// small and stable.
const (
	KindUnknownTool    = "unknown_tool"
	KindInvalidInput   = "invalid_input"
	KindTimeout        = "timeout"
	KindExecutionError = "execution_error"
)

// Result is the outcome of a single tool call, success or failure.
// Execute always returns a Result; failures are data handed back to
// the model, never Go errors that abort the conversation.
type Result struct {
	CallID   string        `json:"call_id,omitempty"`
	Tool     string        `json:"tool"`
	OK       bool          `json:"ok"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// Executor runs registry tools with a per-call timeout and a bounded
// retry policy for transient failures.
type Executor struct {
	registry   *Registry
	logger     *slog.Logger
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Timeout    time.Duration // per-attempt deadline, 0 means no deadline
	MaxRetries int           // additional attempts after the first
	RetryDelay time.Duration // pause between attempts
}

// NewExecutor creates an executor over a registry.
func NewExecutor(registry *Registry, logger *slog.Logger, opts ExecutorOptions) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Executor{
		registry:   registry,
		logger:     logger,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
}

// Execute runs a tool call. Unknown tools and invalid arguments fail
// immediately without retry; timeouts and handler errors are retried
// up to MaxRetries times. The returned Result is always non-nil.
func (e *Executor) Execute(ctx context.Context, callID, name string, args map[string]any) *Result {
	start := time.Now()
	result := &Result{CallID: callID, Tool: name}

	tool := e.registry.Get(name)
	if tool == nil {
		result.Attempts = 1
		result.Duration = time.Since(start)
		result.Kind = KindUnknownTool
		result.Error = (&UnknownToolError{Name: name}).Error()
		e.logger.Warn("tool call rejected", "tool", name, "kind", result.Kind)
		return result
	}

	if err := validateArgs(tool.Parameters, args); err != nil {
		result.Attempts = 1
		result.Duration = time.Since(start)
		result.Kind = KindInvalidInput
		result.Error = (&InvalidInputError{Tool: name, Reason: err.Error()}).Error()
		e.logger.Warn("tool call rejected", "tool", name, "kind", result.Kind, "reason", err)
		return result
	}

	maxAttempts := e.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				result.Attempts = attempt - 1
				result.Duration = time.Since(start)
				result.Kind = KindExecutionError
				result.Error = ctx.Err().Error()
				return result
			case <-time.After(e.retryDelay):
			}
		}

		output, err := e.runOnce(ctx, tool, args)
		result.Attempts = attempt

		if err == nil {
			result.OK = true
			result.Output = output
			result.Duration = time.Since(start)
			e.logger.Debug("tool call succeeded",
				"tool", name,
				"attempt", attempt,
				"duration", result.Duration,
			)
			return result
		}

		lastErr = err
		e.logger.Warn("tool call failed",
			"tool", name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)

		// Do not burn retries when the caller is gone.
		if ctx.Err() != nil {
			break
		}
	}

	result.Duration = time.Since(start)
	result.Error = lastErr.Error()
	var timeoutErr *TimeoutError
	if errors.As(lastErr, &timeoutErr) {
		result.Kind = KindTimeout
	} else {
		result.Kind = KindExecutionError
	}
	return result
}

// runOnce runs the handler with the per-attempt timeout. A handler
// that overruns its deadline is abandoned; its goroutine finishes in
// the background and its result is discarded.
func (e *Executor) runOnce(ctx context.Context, tool *Tool, args map[string]any) (string, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	type handlerResult struct {
		output string
		err    error
	}
	done := make(chan handlerResult, 1)

	go func() {
		output, err := tool.Handler(runCtx, args)
		done <- handlerResult{output, err}
	}()

	select {
	case res := <-done:
		return res.output, res.err
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", &TimeoutError{Tool: tool.Name, Timeout: e.timeout}
		}
		return "", runCtx.Err()
	}
}
