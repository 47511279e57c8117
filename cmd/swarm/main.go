// Package main provides the swarm command-line tool: it runs swarm scripts
// on the actor runtime, benchmarks the scheduler, and reports the version.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/swarm-lang/swarm/internal/agent"
	"github.com/swarm-lang/swarm/internal/cli"
	"github.com/swarm-lang/swarm/internal/interp"
	"github.com/swarm-lang/swarm/internal/parser"
	"github.com/swarm-lang/swarm/internal/runtime"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	switch sub {
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		fmt.Printf("swarm version %s\n", cli.Version)
	case "run":
		must(runCommand(args))
	case "bench":
		must(benchCommand(args))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println(`usage: swarm <command> [arguments]

Commands:
  run      Run a swarm script (-schedulers, -config, -timeout, -watch, -stats, -metrics)
  bench    Benchmark spawning and message passing
  version  Print the runtime version
  help     Print this help`)
}

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runOptions is everything the run subcommand resolved from its flags.
type runOptions struct {
	schedulers int
	configPath string
	timeout    time.Duration
	stats      bool
	verbose    bool
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	schedulers := fs.Int("schedulers", 0, "scheduler workers (0 = one per CPU)")
	configPath := fs.String("config", "", "YAML runtime configuration file")
	timeout := fs.Duration("timeout", 0, "optional run timeout (e.g. 30s)")
	watch := fs.Bool("watch", false, "re-run the script whenever it changes")
	stats := fs.Bool("stats", false, "print runtime statistics after the run")
	metricsAddr := fs.String("metrics", "", "serve prometheus metrics on this address (e.g. :9090)")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: swarm run [flags] <file.sw>")
		os.Exit(2)
	}
	file := fs.Arg(0)
	if *metricsAddr != "" {
		if err := serveMetrics(*metricsAddr); err != nil {
			return err
		}
	}
	opts := runOptions{
		schedulers: *schedulers,
		configPath: *configPath,
		timeout:    *timeout,
		stats:      *stats,
		verbose:    *verbose,
	}

	if !*watch {
		return runFile(file, opts)
	}
	return watchAndRun(file, opts)
}

// serveMetrics registers the runtime metrics and exposes them over HTTP for
// the remainder of the process lifetime.
func serveMetrics(addr string) error {
	registry := prometheus.NewRegistry()
	runtime.InitMetrics(registry)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.Serve(ln, mux); err != nil {
			fmt.Fprintf(os.Stderr, "metrics: %v\n", err)
		}
	}()
	return nil
}

// runFile parses and executes one script's main actor to completion.
func runFile(file string, opts runOptions) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	prog, err := parser.ParseFile(string(src), file)
	if err != nil {
		return err
	}
	if err := cli.CheckRequirement(prog.Requires); err != nil {
		return err
	}
	if _, ok := prog.Actor("main"); !ok {
		return fmt.Errorf("%s: no main actor", file)
	}

	cfg := runtime.DefaultConfig()
	if opts.configPath != "" {
		cfg, err = runtime.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
	}
	if opts.schedulers > 0 {
		cfg.Schedulers = opts.schedulers
	}
	if opts.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
		cfg.Logger = logger
	}

	sw, err := runtime.New(cfg)
	if err != nil {
		return err
	}
	if err := sw.Start(); err != nil {
		return err
	}
	defer sw.Close()

	tools := agent.NewRegistry(cfg.Logger)
	if err := tools.Register(agent.NewSleepTool(sw.Clock())); err != nil {
		return err
	}
	if err := tools.Register(&agent.ReadFileTool{}); err != nil {
		return err
	}

	in := interp.New(sw, prog, interp.Options{Tools: tools, Logger: cfg.Logger})
	pid, err := in.SpawnActor("main", nil)
	if err != nil {
		return err
	}
	if err := sw.Wait(pid, opts.timeout); err != nil {
		return err
	}
	// Main is done; give spawned children a bounded drain.
	drainDeadline := time.Now().Add(5 * time.Second)
	for sw.Stats().LiveProcesses > 0 && time.Now().Before(drainDeadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if opts.stats {
		printStats(sw.Stats())
	}
	return nil
}

// watchAndRun runs the script, then re-runs it on every write to the file
// until interrupted.
func watchAndRun(file string, opts runOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Watch the directory: editors typically replace the file, which drops
	// a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	changes := make(chan struct{}, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		target := filepath.Clean(file)
		for {
			select {
			case ev := <-watcher.Events:
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case err := <-watcher.Errors:
				return err
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		for {
			if err := runFile(file, opts); err != nil {
				// Keep watching; the next edit may fix it.
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			select {
			case <-changes:
				fmt.Fprintf(os.Stderr, "-- %s changed, re-running\n", file)
			case <-gctx.Done():
				return nil
			}
		}
	})

	return g.Wait()
}

func benchCommand(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	schedulers := fs.Int("schedulers", 0, "scheduler workers (0 = one per CPU)")
	n := fs.Int("n", 100000, "operations per benchmark")
	_ = fs.Parse(args)

	sw, err := runtime.New(runtime.Config{Schedulers: *schedulers})
	if err != nil {
		return err
	}
	if err := sw.Start(); err != nil {
		return err
	}
	defer sw.Close()

	if err := benchSpawn(sw, *n); err != nil {
		return err
	}
	if err := benchPingPong(sw, *n); err != nil {
		return err
	}
	printStats(sw.Stats())
	return nil
}

// benchSpawn measures spawn-to-exit throughput for trivial processes.
func benchSpawn(sw *runtime.Swarm, n int) error {
	start := time.Now()
	var last runtime.PID
	for i := 0; i < n; i++ {
		pid, err := sw.Spawn(func(pc *runtime.PC) {}, nil)
		if err != nil {
			return err
		}
		last = pid
	}
	if err := sw.Wait(last, time.Minute); err != nil {
		return err
	}
	for sw.Stats().LiveProcesses > 0 {
		time.Sleep(time.Millisecond)
	}
	elapsed := time.Since(start)
	fmt.Printf("spawn:     %d processes in %v (%.0f/s)\n",
		n, elapsed.Round(time.Millisecond), float64(n)/elapsed.Seconds())
	return nil
}

// benchPingPong measures message round trips between two processes.
func benchPingPong(sw *runtime.Swarm, n int) error {
	echo, err := sw.Spawn(func(pc *runtime.PC) {
		for {
			v, sender, _ := pc.ReceiveValue(0)
			if v == runtime.Sym("stop") {
				return
			}
			if err := pc.SendValue(sender, v); err != nil {
				pc.Fail(err)
			}
		}
	}, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	done := make(chan error, 1)
	_, err = sw.Spawn(func(pc *runtime.PC) {
		for i := 0; i < n; i++ {
			if err := pc.SendValue(echo, int64(i)); err != nil {
				done <- err
				return
			}
			if _, _, ok := pc.ReceiveValue(0); !ok {
				done <- fmt.Errorf("receive aborted")
				return
			}
		}
		done <- pc.SendValue(echo, runtime.Sym("stop"))
	}, nil)
	if err != nil {
		return err
	}
	if err := <-done; err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Printf("ping-pong: %d round trips in %v (%.0f/s)\n",
		n, elapsed.Round(time.Millisecond), float64(n)/elapsed.Seconds())
	return nil
}

func printStats(st runtime.Stats) {
	fmt.Printf("stats: spawns=%d switches=%d reductions=%d sends=%d steals=%d collections=%d\n",
		st.Spawns, st.ContextSwitches, st.Reductions, st.Sends, st.Steals, st.Collections)
}
