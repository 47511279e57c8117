// Package agent suspends swarm processes while background operations run.
// A tool executes on its own goroutine and posts its result back to the
// calling process as an ordinary message, so the process blocks in a plain
// receive and the scheduler stays free to run other work.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/swarm-lang/swarm/internal/runtime"
)

// Sentinel errors reported by the registry.
var (
	ErrUnknownTool   = errors.New("agent: unknown tool")
	ErrDuplicateTool = errors.New("agent: tool already registered")
)

// Result and error messages are tuples tagged with these atoms.
const (
	resultTag = "tool_result"
	errorTag  = "tool_error"
)

// Tool is one background operation callable from a process.
type Tool interface {
	// Name is the identifier the tool is invoked by.
	Name() string
	// Run executes the operation. It runs outside any process and must not
	// touch process heaps; it communicates through the returned value only.
	Run(ctx context.Context, args []any) (any, error)
}

// Registry owns the set of registered tools and hands out invocation ids.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	nextID uint64 // atomic
	logger *zap.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Invoke runs the named tool and blocks the calling process until the result
// message arrives. Messages that are not this invocation's result are re-sent
// to the process so they stay in the mailbox for later receives.
func (r *Registry) Invoke(pc *runtime.PC, name string, args []any) (any, error) {
	tool, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	id := int64(atomic.AddUint64(&r.nextID, 1))
	self := pc.Self()
	sw := pc.Swarm()

	r.logger.Debug("invoking tool",
		zap.String("tool", name), zap.Int64("id", id), zap.Uint64("pid", uint64(self)))

	go func() {
		v, err := tool.Run(context.Background(), args)
		var msg runtime.Tup
		if err != nil {
			msg = runtime.Tup{runtime.Sym(errorTag), id, err.Error()}
		} else {
			msg = runtime.Tup{runtime.Sym(resultTag), id, v}
		}
		if err := sw.Send(self, msg); err != nil {
			// The caller exited while the tool ran; nobody is waiting.
			r.logger.Debug("dropping tool result",
				zap.String("tool", name), zap.Int64("id", id), zap.Error(err))
		}
	}()

	for {
		v, _, ok := pc.ReceiveValue(0)
		if !ok {
			return nil, fmt.Errorf("agent: tool %s: receive aborted", name)
		}
		if tag, tid, payload, ok := splitResult(v); ok && tid == id {
			if tag == errorTag {
				return nil, fmt.Errorf("agent: tool %s: %v", name, payload)
			}
			return payload, nil
		}
		// Not ours; put it back for whoever is actually waiting for it.
		if err := pc.SendValue(self, v); err != nil {
			return nil, err
		}
		pc.Yield()
	}
}

// splitResult decomposes a {:tool_result|:tool_error, id, payload} tuple.
func splitResult(v any) (tag string, id int64, payload any, ok bool) {
	tup, isTup := v.(runtime.Tup)
	if !isTup || len(tup) != 3 {
		return "", 0, nil, false
	}
	sym, isSym := tup[0].(runtime.Sym)
	if !isSym || (string(sym) != resultTag && string(sym) != errorTag) {
		return "", 0, nil, false
	}
	id, isInt := tup[1].(int64)
	if !isInt {
		return "", 0, nil, false
	}
	return string(sym), id, tup[2], true
}
