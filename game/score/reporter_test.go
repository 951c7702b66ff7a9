package score

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/tictactoe-arena/game/engine"
	"github.com/wricardo/tictactoe-arena/store"
)

// MockRecorder is a mock implementation of Recorder
type MockRecorder struct {
	mu                sync.Mutex
	calls             []engine.Score
	RecordOutcomeFunc func(ctx context.Context, nick string, outcome store.Outcome) error
}

func (m *MockRecorder) RecordOutcome(ctx context.Context, nick string, outcome store.Outcome) error {
	m.mu.Lock()
	m.calls = append(m.calls, engine.Score{Nick: nick, Outcome: engine.Outcome(outcome)})
	m.mu.Unlock()
	if m.RecordOutcomeFunc != nil {
		return m.RecordOutcomeFunc(ctx, nick, outcome)
	}
	return nil
}

func (m *MockRecorder) Calls() []engine.Score {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.Score(nil), m.calls...)
}

func TestReporterWritesInOrder(t *testing.T) {
	rec := &MockRecorder{}
	r := New(rec, Options{})

	r.Report(engine.Score{Nick: "bob", Outcome: engine.OutcomeWin})
	r.Report(engine.Score{Nick: "alice", Outcome: engine.OutcomeLose})
	r.Close()

	calls := rec.Calls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 writes, got %d", len(calls))
	}
	if calls[0].Nick != "bob" || calls[0].Outcome != engine.OutcomeWin {
		t.Errorf("Unexpected first write %+v", calls[0])
	}
	if calls[1].Nick != "alice" || calls[1].Outcome != engine.OutcomeLose {
		t.Errorf("Unexpected second write %+v", calls[1])
	}
}

func TestReporterNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	rec := &MockRecorder{
		RecordOutcomeFunc: func(ctx context.Context, nick string, outcome store.Outcome) error {
			<-release
			return nil
		},
	}
	r := New(rec, Options{QueueSize: 1})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			r.Report(engine.Score{Nick: "bob", Outcome: engine.OutcomeWin})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Report blocked on a stalled store")
	}
	close(release)
	r.Close()

	if n := len(rec.Calls()); n < 1 || n > 2 {
		t.Errorf("Expected the overflow to be dropped, got %d writes", n)
	}
}

func TestReporterSurvivesFailures(t *testing.T) {
	rec := &MockRecorder{
		RecordOutcomeFunc: func(ctx context.Context, nick string, outcome store.Outcome) error {
			if nick == "ghost" {
				return store.ErrNotFound
			}
			if nick == "flaky" {
				return errors.New("connection reset")
			}
			return nil
		},
	}
	r := New(rec, Options{})
	r.Report(engine.Score{Nick: "ghost", Outcome: engine.OutcomeWin})
	r.Report(engine.Score{Nick: "flaky", Outcome: engine.OutcomeDraw})
	r.Report(engine.Score{Nick: "alice", Outcome: engine.OutcomeDraw})
	r.Close()

	if n := len(rec.Calls()); n != 3 {
		t.Errorf("Expected every report to be attempted once, got %d", n)
	}
}

func TestReporterTimeout(t *testing.T) {
	rec := &MockRecorder{
		RecordOutcomeFunc: func(ctx context.Context, nick string, outcome store.Outcome) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	r := New(rec, Options{Timeout: 10 * time.Millisecond})
	r.Report(engine.Score{Nick: "alice", Outcome: engine.OutcomeWin})

	closed := make(chan struct{})
	go func() {
		r.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Write did not honor the timeout")
	}
}

func TestReportAfterClose(t *testing.T) {
	rec := &MockRecorder{}
	r := New(rec, Options{})
	r.Close()
	r.Close()
	r.Report(engine.Score{Nick: "late", Outcome: engine.OutcomeWin})

	if n := len(rec.Calls()); n != 0 {
		t.Errorf("Expected no writes after close, got %d", n)
	}
}

func TestReporterWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.CreateUser(ctx, store.User{Nick: "bob", Email: "bob@example.com", PasswordHash: "x"})
	mem.CreateUser(ctx, store.User{Nick: "alice", Email: "alice@example.com", PasswordHash: "x"})

	r := New(mem, Options{})
	r.Report(engine.Score{Nick: "bob", Outcome: engine.OutcomeWin})
	r.Report(engine.Score{Nick: "alice", Outcome: engine.OutcomeLose})
	r.Close()

	bob, _ := mem.GetUserByNick(ctx, "bob")
	alice, _ := mem.GetUserByNick(ctx, "alice")
	if bob.Stats.Wins != 1 || alice.Stats.Losses != 1 {
		t.Errorf("Expected bob +1 win and alice +1 lose, got %+v and %+v", bob.Stats, alice.Stats)
	}
}
