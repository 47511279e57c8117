package runtime

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitMetricsRegistersAll(t *testing.T) {
	registry := prometheus.NewRegistry()
	InitMetrics(registry)

	fams, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(fams) != 8 {
		t.Fatalf("expected 8 metric families, got %d", len(fams))
	}
	names := make(map[string]bool, len(fams))
	for _, f := range fams {
		names[f.GetName()] = true
	}
	want := []string{
		"swarm_scheduler_workers",
		"swarm_process_live",
		"swarm_process_spawns_total",
		"swarm_scheduler_context_switches_total",
		"swarm_scheduler_reductions_total",
		"swarm_mailbox_sends_total",
		"swarm_scheduler_steals_total",
		"swarm_heap_collections_total",
	}
	for _, name := range want {
		if !names[name] {
			t.Fatalf("family %s not registered", name)
		}
	}
}

func TestMetricsTrackWorkload(t *testing.T) {
	// The vectors are package-level and shared across tests; assert deltas.
	spawnsBefore := testutil.ToFloat64(spawnsTotal)
	sendsBefore := testutil.ToFloat64(sendsTotal)
	switchesBefore := testutil.ToFloat64(contextSwitchesTotal)
	liveBefore := testutil.ToFloat64(liveProcessesGauge)

	sw := newTestSwarm(t, 2)
	if got := testutil.ToFloat64(workersGauge); got != 2 {
		t.Fatalf("workers gauge = %v after Start", got)
	}

	recv, err := sw.Spawn(func(pc *PC) {
		for i := 0; i < 3; i++ {
			pc.ReceiveValue(0)
		}
	}, nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	sw.Spawn(func(pc *PC) {
		for i := 0; i < 3; i++ {
			pc.SendValue(recv, int64(i))
		}
	}, nil)

	waitIdle(t, sw, 10*time.Second)

	if got := testutil.ToFloat64(spawnsTotal) - spawnsBefore; got != 2 {
		t.Fatalf("spawns delta = %v", got)
	}
	if got := testutil.ToFloat64(sendsTotal) - sendsBefore; got != 3 {
		t.Fatalf("sends delta = %v", got)
	}
	if got := testutil.ToFloat64(contextSwitchesTotal) - switchesBefore; got == 0 {
		t.Fatal("context switch counter did not advance")
	}
	if got := testutil.ToFloat64(liveProcessesGauge) - liveBefore; got != 0 {
		t.Fatalf("live gauge delta = %v at idle", got)
	}

	if err := sw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := testutil.ToFloat64(workersGauge); got != 0 {
		t.Fatalf("workers gauge = %v after Close", got)
	}
}
