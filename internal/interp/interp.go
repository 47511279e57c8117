// Package interp evaluates parsed swarm scripts on the actor runtime. Each
// actor declaration becomes a process body; script values convert to runtime
// terms at every send and back at every receive, so actors share nothing.
package interp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/swarm-lang/swarm/internal/agent"
	"github.com/swarm-lang/swarm/internal/parser"
	"github.com/swarm-lang/swarm/internal/runtime"
)

// ErrUnknownActor reports a spawn of an undeclared actor.
var ErrUnknownActor = errors.New("interp: unknown actor")

// Options configures an interpreter.
type Options struct {
	// Tools resolves calls that are not language builtins. Nil disables
	// tool calls.
	Tools *agent.Registry
	// Stdout receives print output. Nil means os.Stdout.
	Stdout io.Writer
	// Logger for script lifecycle events. Nil means no logging.
	Logger *zap.Logger
}

// Interp runs the actors of one parsed program on a swarm.
type Interp struct {
	sw     *runtime.Swarm
	prog   *parser.Program
	tools  *agent.Registry
	logger *zap.Logger

	outMu  sync.Mutex
	stdout io.Writer
}

// New creates an interpreter for prog on sw.
func New(sw *runtime.Swarm, prog *parser.Program, opts Options) *Interp {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Interp{
		sw:     sw,
		prog:   prog,
		tools:  opts.Tools,
		logger: opts.Logger,
		stdout: opts.Stdout,
	}
}

// SpawnActor starts the named actor as a new process with the given argument
// values. A script error inside the actor terminates only that process.
func (in *Interp) SpawnActor(name string, args []any, opts ...runtime.SpawnOption) (runtime.PID, error) {
	decl, ok := in.prog.Actor(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownActor, name)
	}
	if len(args) != len(decl.Params) {
		return 0, fmt.Errorf("interp: actor %s takes %d arguments, got %d",
			name, len(decl.Params), len(args))
	}
	pid, err := in.sw.Spawn(in.actorBody(decl, args), nil, opts...)
	if err != nil {
		return 0, err
	}
	in.logger.Debug("spawned actor",
		zap.String("actor", name), zap.Uint64("pid", uint64(pid)))
	return pid, nil
}

// actorBody binds the declaration's parameters and executes its statements.
func (in *Interp) actorBody(decl *parser.ActorDecl, args []any) runtime.Body {
	return func(pc *runtime.PC) {
		env := newEnv(nil)
		for i, param := range decl.Params {
			env.define(param, args[i])
		}
		ev := &evaluator{in: in, pc: pc}
		if _, _, err := ev.execBlock(env, decl.Body); err != nil {
			pc.Fail(fmt.Errorf("actor %s: %w", decl.Name, err))
		}
	}
}

// print writes one print() call's output atomically with respect to other
// actors printing.
func (in *Interp) print(parts []string) {
	in.outMu.Lock()
	defer in.outMu.Unlock()
	for i, p := range parts {
		if i > 0 {
			io.WriteString(in.stdout, " ")
		}
		io.WriteString(in.stdout, p)
	}
	io.WriteString(in.stdout, "\n")
}

// env is a lexical scope chain for script variables.
type env struct {
	parent *env
	vars   map[string]any
}

func newEnv(parent *env) *env {
	return &env{parent: parent, vars: make(map[string]any)}
}

func (e *env) define(name string, v any) {
	e.vars[name] = v
}

func (e *env) lookup(name string) (any, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// assign updates the innermost scope binding name. Reports false when the
// variable was never defined.
func (e *env) assign(name string, v any) bool {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.vars[name]; ok {
			s.vars[name] = v
			return true
		}
	}
	return false
}
