package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/swarm-lang/swarm/internal/runtime"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestSwarm(t *testing.T) *runtime.Swarm {
	t.Helper()
	sw, err := runtime.New(runtime.Config{Schedulers: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sw.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if err := sw.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return sw
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(NewSleepTool(nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&ReadFileTool{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&ReadFileTool{}); !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
	if _, ok := r.Lookup("sleep"); !ok {
		t.Fatal("sleep not found")
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"readfile", "sleep"}) {
		t.Fatalf("Names = %v", got)
	}
}

func TestInvokeSleep(t *testing.T) {
	sw := newTestSwarm(t)
	r := NewRegistry(nil)
	if err := r.Register(NewSleepTool(nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res := make(chan any, 1)
	_, err := sw.Spawn(func(pc *runtime.PC) {
		v, err := r.Invoke(pc, "sleep", []any{int64(5)})
		if err != nil {
			pc.Fail(err)
		}
		res <- v
	}, nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	select {
	case v := <-res:
		if v != int64(5) {
			t.Fatalf("result = %#v", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("invoke never completed")
	}
}

func TestInvokeReadFile(t *testing.T) {
	sw := newTestSwarm(t)
	r := NewRegistry(nil)
	if err := r.Register(&ReadFileTool{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte("file body"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res := make(chan any, 1)
	sw.Spawn(func(pc *runtime.PC) {
		v, err := r.Invoke(pc, "readfile", []any{path})
		if err != nil {
			pc.Fail(err)
		}
		res <- v
	}, nil)

	select {
	case v := <-res:
		if v != "file body" {
			t.Fatalf("result = %#v", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("invoke never completed")
	}
}

func TestInvokeToolError(t *testing.T) {
	sw := newTestSwarm(t)
	r := NewRegistry(nil)
	if err := r.Register(&ReadFileTool{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res := make(chan error, 1)
	sw.Spawn(func(pc *runtime.PC) {
		_, err := r.Invoke(pc, "readfile", []any{filepath.Join(t.TempDir(), "missing")})
		res <- err
	}, nil)

	select {
	case err := <-res:
		if err == nil {
			t.Fatal("expected an error for a missing file")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("invoke never completed")
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	sw := newTestSwarm(t)
	r := NewRegistry(nil)

	res := make(chan error, 1)
	sw.Spawn(func(pc *runtime.PC) {
		_, err := r.Invoke(pc, "nope", nil)
		res <- err
	}, nil)

	select {
	case err := <-res:
		if !errors.Is(err, ErrUnknownTool) {
			t.Fatalf("expected ErrUnknownTool, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("invoke never completed")
	}
}

func TestInvokePreservesOtherMessages(t *testing.T) {
	sw := newTestSwarm(t)
	r := NewRegistry(nil)
	if err := r.Register(NewSleepTool(nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	stray := make(chan any, 1)
	pid, err := sw.Spawn(func(pc *runtime.PC) {
		if _, err := r.Invoke(pc, "sleep", []any{int64(20)}); err != nil {
			pc.Fail(err)
		}
		// The unrelated message sent during the invoke must still be here.
		v, _, _ := pc.ReceiveValue(0)
		stray <- v
	}, nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if err := sw.Send(pid, runtime.Sym("unrelated")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case v := <-stray:
		if v != runtime.Sym("unrelated") {
			t.Fatalf("got %#v", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stray message lost")
	}
}

func TestSleepArgValidation(t *testing.T) {
	tool := NewSleepTool(nil)
	if _, err := tool.Run(context.Background(), nil); err == nil {
		t.Fatal("expected an error for missing argument")
	}
	if _, err := tool.Run(context.Background(), []any{"soon"}); err == nil {
		t.Fatal("expected an error for a non-integer argument")
	}
	if _, err := tool.Run(context.Background(), []any{int64(-1)}); err == nil {
		t.Fatal("expected an error for a negative duration")
	}
}
