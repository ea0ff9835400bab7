package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestRegistry_StartIfAbsentDispatchesOnce(t *testing.T) {
	r := NewRegistry(testLogger())

	var calls int32
	release := make(chan struct{})
	work := func(ctx context.Context) (model.JobResult, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return model.JobResult{Knowledge: "doc"}, nil
	}

	var wg sync.WaitGroup
	var dispatched int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.StartIfAbsent("s1", model.JobKindKnowledge, work) {
				atomic.AddInt32(&dispatched, 1)
			}
		}()
	}
	wg.Wait()
	close(release)

	if got := atomic.LoadInt32(&dispatched); got != 1 {
		t.Fatalf("dispatched = %d, want 1", got)
	}
	res, err := r.Await(context.Background(), "s1", model.JobKindKnowledge, time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if res.Knowledge != "doc" {
		t.Fatalf("result = %q", res.Knowledge)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("work calls = %d, want 1", got)
	}
}

func TestRegistry_PeekNeverBlocks(t *testing.T) {
	r := NewRegistry(testLogger())

	// Never started.
	if res, err := r.Peek("s1", model.JobKindVoice); res != nil || err != nil {
		t.Fatalf("peek absent = (%v, %v), want (nil, nil)", res, err)
	}

	release := make(chan struct{})
	r.StartIfAbsent("s1", model.JobKindVoice, func(ctx context.Context) (model.JobResult, error) {
		<-release
		return model.JobResult{Voices: []model.VoiceCandidate{{VoiceID: "v1"}}}, nil
	})

	// Pending.
	if res, err := r.Peek("s1", model.JobKindVoice); res != nil || err != nil {
		t.Fatalf("peek pending = (%v, %v), want (nil, nil)", res, err)
	}

	close(release)
	if _, err := r.Await(context.Background(), "s1", model.JobKindVoice, time.Second); err != nil {
		t.Fatalf("Await: %v", err)
	}

	res, err := r.Peek("s1", model.JobKindVoice)
	if err != nil || res == nil || len(res.Voices) != 1 {
		t.Fatalf("peek resolved = (%v, %v)", res, err)
	}
}

func TestRegistry_PeekSurfacesJobError(t *testing.T) {
	r := NewRegistry(testLogger())
	boom := errors.New("scrape failed")
	r.StartIfAbsent("s1", model.JobKindKnowledge, func(ctx context.Context) (model.JobResult, error) {
		return model.JobResult{}, boom
	})
	if _, err := r.Await(context.Background(), "s1", model.JobKindKnowledge, time.Second); !errors.Is(err, boom) {
		t.Fatalf("Await err = %v, want %v", err, boom)
	}
	if _, err := r.Peek("s1", model.JobKindKnowledge); !errors.Is(err, boom) {
		t.Fatalf("Peek err = %v, want %v", err, boom)
	}
}

func TestRegistry_AwaitTimeout(t *testing.T) {
	r := NewRegistry(testLogger())
	release := make(chan struct{})
	defer close(release)
	r.StartIfAbsent("s1", model.JobKindKnowledge, func(ctx context.Context) (model.JobResult, error) {
		<-release
		return model.JobResult{}, nil
	})

	_, err := r.Await(context.Background(), "s1", model.JobKindKnowledge, 20*time.Millisecond)
	if !errors.Is(err, domain.ErrJobTimeout) {
		t.Fatalf("err = %v, want ErrJobTimeout", err)
	}
}

func TestRegistry_AwaitUnknownJob(t *testing.T) {
	r := NewRegistry(testLogger())
	_, err := r.Await(context.Background(), "nope", model.JobKindVoice, time.Second)
	if !errors.Is(err, domain.ErrJobNotStarted) {
		t.Fatalf("err = %v, want ErrJobNotStarted", err)
	}
}

func TestRegistry_ResultSurvivesConsumption(t *testing.T) {
	r := NewRegistry(testLogger())
	r.StartIfAbsent("s1", model.JobKindKnowledge, func(ctx context.Context) (model.JobResult, error) {
		return model.JobResult{Knowledge: "doc"}, nil
	})
	if _, err := r.Await(context.Background(), "s1", model.JobKindKnowledge, time.Second); err != nil {
		t.Fatalf("Await: %v", err)
	}

	// Reading twice returns the same result; resolution does not evict.
	for i := 0; i < 2; i++ {
		res, err := r.Peek("s1", model.JobKindKnowledge)
		if err != nil || res == nil || res.Knowledge != "doc" {
			t.Fatalf("read %d = (%v, %v)", i, res, err)
		}
	}
	// And the key still suppresses duplicates.
	if r.StartIfAbsent("s1", model.JobKindKnowledge, func(ctx context.Context) (model.JobResult, error) {
		t.Fatal("resolved job must not be re-dispatched")
		return model.JobResult{}, nil
	}) {
		t.Fatal("StartIfAbsent on a resolved key must be a no-op")
	}
}

func TestRegistry_DropAllowsRestart(t *testing.T) {
	r := NewRegistry(testLogger())
	r.StartIfAbsent("s1", model.JobKindVoice, func(ctx context.Context) (model.JobResult, error) {
		return model.JobResult{}, nil
	})
	if _, err := r.Await(context.Background(), "s1", model.JobKindVoice, time.Second); err != nil {
		t.Fatalf("Await: %v", err)
	}

	r.Drop("s1")
	if r.Started("s1", model.JobKindVoice) {
		t.Fatal("Drop must forget the key")
	}
	if !r.StartIfAbsent("s1", model.JobKindVoice, func(ctx context.Context) (model.JobResult, error) {
		return model.JobResult{}, nil
	}) {
		t.Fatal("fresh dispatch after Drop must succeed")
	}
}

func TestRegistry_StatusTracksLifecycle(t *testing.T) {
	r := NewRegistry(testLogger())

	if _, ok := r.Status("s1", model.JobKindKnowledge); ok {
		t.Fatal("absent key must report no job")
	}

	release := make(chan struct{})
	r.StartIfAbsent("s1", model.JobKindKnowledge, func(ctx context.Context) (model.JobResult, error) {
		<-release
		return model.JobResult{Knowledge: "doc"}, nil
	})
	if st, ok := r.Status("s1", model.JobKindKnowledge); !ok || st != model.JobStatusPending {
		t.Fatalf("status = (%s, %v), want pending", st, ok)
	}

	close(release)
	if _, err := r.Await(context.Background(), "s1", model.JobKindKnowledge, time.Second); err != nil {
		t.Fatalf("Await: %v", err)
	}
	if st, _ := r.Status("s1", model.JobKindKnowledge); st != model.JobStatusDone {
		t.Fatalf("status = %s, want done", st)
	}

	r.StartIfAbsent("s1", model.JobKindVoice, func(ctx context.Context) (model.JobResult, error) {
		return model.JobResult{}, errors.New("no voices")
	})
	if _, err := r.Await(context.Background(), "s1", model.JobKindVoice, time.Second); err == nil {
		t.Fatal("expected the job error")
	}
	if st, _ := r.Status("s1", model.JobKindVoice); st != model.JobStatusFailed {
		t.Fatalf("status = %s, want failed", st)
	}
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	l := testLogger()
	p := NewPool(2, l)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	done := make(chan struct{})
	if err := p.Submit(func(ctx context.Context) error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
	cancel()
	p.Stop()
}
