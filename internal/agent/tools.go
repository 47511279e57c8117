package agent

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
)

// SleepTool pauses the calling process for a number of milliseconds without
// occupying a scheduler.
type SleepTool struct {
	Clock clock.Clock
}

// NewSleepTool creates a sleep tool on the given clock (nil means wall clock).
func NewSleepTool(clk clock.Clock) *SleepTool {
	if clk == nil {
		clk = clock.New()
	}
	return &SleepTool{Clock: clk}
}

// Name implements Tool.
func (t *SleepTool) Name() string { return "sleep" }

// Run implements Tool. The single argument is the duration in milliseconds.
func (t *SleepTool) Run(ctx context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("sleep: want 1 argument, got %d", len(args))
	}
	ms, ok := args[0].(int64)
	if !ok {
		return nil, fmt.Errorf("sleep: want an integer, got %T", args[0])
	}
	if ms < 0 {
		return nil, fmt.Errorf("sleep: negative duration %d", ms)
	}
	timer := t.Clock.Timer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return ms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadFileTool reads a file from disk into a string.
type ReadFileTool struct{}

// Name implements Tool.
func (t *ReadFileTool) Name() string { return "readfile" }

// Run implements Tool. The single argument is the file path.
func (t *ReadFileTool) Run(ctx context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("readfile: want 1 argument, got %d", len(args))
	}
	path, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("readfile: want a string path, got %T", args[0])
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("readfile: %w", err)
	}
	return string(data), nil
}
