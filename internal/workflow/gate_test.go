package workflow

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGateFiresWhenAllSourcesComplete(t *testing.T) {
	t.Parallel()
	g := NewPendingGate()
	g.Init("t1", []string{"a", "b"})

	res := g.RecordCompletion("t1", "a", "summary-a")
	if res.AllResponded || res.Fire {
		t.Fatalf("first completion should not resolve: %#v", res)
	}
	if !g.Pending("t1") {
		t.Fatal("expected open record after first completion")
	}

	res = g.RecordCompletion("t1", "b", "summary-b")
	if !res.AllResponded || !res.Fire || res.HasRejection {
		t.Fatalf("second completion should fire: %#v", res)
	}
	if len(res.Summaries) != 2 || res.Summaries[0].SourcePodID != "a" || res.Summaries[1].SourcePodID != "b" {
		t.Fatalf("summaries not in completion order: %#v", res.Summaries)
	}
	if g.Pending("t1") {
		t.Fatal("record should be consumed after firing")
	}
}

func TestGateRejectionBlocksCycleAndClearsOnCompletion(t *testing.T) {
	t.Parallel()
	g := NewPendingGate()
	g.Init("t1", []string{"a", "b"})

	res := g.RecordRejection("t1", "a", "not relevant")
	if res.AllResponded || !res.HasRejection {
		t.Fatalf("unexpected rejection resolution: %#v", res)
	}

	res = g.RecordCompletion("t1", "b", "summary-b")
	if !res.AllResponded || !res.HasRejection {
		t.Fatalf("cycle should be complete with rejection: %#v", res)
	}
	if res.Fire {
		t.Fatal("a rejected cycle must never fire")
	}

	// The record is gone; a fresh independent wave starts clean.
	if g.Pending("t1") {
		t.Fatal("rejected cycle should destroy the record")
	}
	g.Init("t1", []string{"a", "b"})
	g.RecordCompletion("t1", "a", "retry-a")
	res = g.RecordCompletion("t1", "b", "retry-b")
	if !res.Fire {
		t.Fatalf("fresh wave should fire: %#v", res)
	}
}

func TestGateInitIdempotent(t *testing.T) {
	t.Parallel()
	g := NewPendingGate()
	g.Init("t1", []string{"a", "b"})
	g.RecordCompletion("t1", "a", "summary-a")

	// A second Init from a concurrent arrival must not reset bookkeeping.
	g.Init("t1", []string{"a", "b"})
	if got := g.CompletedSummaries("t1"); len(got) != 1 {
		t.Fatalf("Init reset the record: %#v", got)
	}
}

func TestGateIgnoresUnknownSourceAndDuplicates(t *testing.T) {
	t.Parallel()
	g := NewPendingGate()
	g.Init("t1", []string{"a", "b"})

	res := g.RecordCompletion("t1", "stranger", "noise")
	if res.AllResponded || res.Fire {
		t.Fatalf("unknown source must not count: %#v", res)
	}

	g.RecordCompletion("t1", "a", "first")
	res = g.RecordCompletion("t1", "a", "again")
	if res.AllResponded {
		t.Fatalf("duplicate completion must not count twice: %#v", res)
	}
	if got := g.CompletedSummaries("t1"); len(got) != 1 || got[0].Summary != "first" {
		t.Fatalf("duplicate overwrote the original summary: %#v", got)
	}
}

func TestGateUnknownTargetIsNoop(t *testing.T) {
	t.Parallel()
	g := NewPendingGate()

	res := g.RecordCompletion("ghost", "a", "s")
	if res.AllResponded || res.Fire || res.HasRejection {
		t.Fatalf("expected zero resolution: %#v", res)
	}
	if g.CompletedSummaries("ghost") != nil {
		t.Fatal("expected nil summaries for unknown target")
	}
}

func TestGateFiresExactlyOnceUnderContention(t *testing.T) {
	t.Parallel()
	g := NewPendingGate()

	sources := make([]string, 8)
	for i := range sources {
		sources[i] = fmt.Sprintf("src-%d", i)
	}
	g.Init("t1", sources)

	var fired atomic.Int64
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			if res := g.RecordCompletion("t1", src, "s-"+src); res.Fire {
				fired.Add(1)
			}
		}(src)
	}
	wg.Wait()

	if fired.Load() != 1 {
		t.Fatalf("expected exactly one firing caller, got %d", fired.Load())
	}
	if g.Pending("t1") {
		t.Fatal("record should be consumed")
	}
}

func TestGateRejections(t *testing.T) {
	t.Parallel()
	g := NewPendingGate()
	g.Init("t1", []string{"a", "b", "c"})
	g.RecordRejection("t1", "b", "off topic")

	rej := g.Rejections("t1")
	if len(rej) != 1 || rej["b"] != "off topic" {
		t.Fatalf("unexpected rejections: %#v", rej)
	}

	g.Clear("t1")
	if g.Pending("t1") {
		t.Fatal("Clear left the record behind")
	}
}
