// Tool Executor with validation and timeout support.
//
// Information Hiding:
// - Timeout enforcement hidden
// - Validation-before-execution policy hidden

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Executor runs tools with argument validation and a per-invocation
// timeout. Failures come back as failed ToolResults rather than errors so
// the model gets a chance to correct itself; a non-nil error is reserved
// for context cancellation.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a tool executor with the given per-call timeout.
// A zero timeout defaults to 30 seconds.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{timeout: timeout}
}

// Execute validates arguments against the tool's schema and runs it under
// the configured timeout. A timed-out invocation produces a failed result,
// not a hang.
func (e *Executor) Execute(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, error) {
	meta := tool.Metadata()

	if err := meta.ValidateArgs(args); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments for tool %q: %w", meta.Name, err)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := tool.Execute(ctx, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return FailureResultf("tool %q timed out after %s", meta.Name, e.timeout), nil
		}
		return FailureResult(fmt.Errorf("tool %q failed: %w", meta.Name, err)), nil
	}
	return result, nil
}
