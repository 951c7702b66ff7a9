package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEvent("move", time.Millisecond)
	m.ObserveEvent("move", time.Millisecond)
	m.SetConnections(3)
	m.SetRooms(2)
	m.GameFinished("win")
	m.ScoreReport("ok")
	m.ScoreDropped()
	m.HandlerPanic()

	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("move")); got != 2 {
		t.Errorf("Expected 2 move events, got %v", got)
	}
	if got := testutil.ToFloat64(m.connections); got != 3 {
		t.Errorf("Expected 3 connections, got %v", got)
	}
	if got := testutil.ToFloat64(m.rooms); got != 2 {
		t.Errorf("Expected 2 rooms, got %v", got)
	}
	if got := testutil.ToFloat64(m.gamesFinished.WithLabelValues("win")); got != 1 {
		t.Errorf("Expected 1 finished game, got %v", got)
	}
	if got := testutil.ToFloat64(m.scoreQueueDropped); got != 1 {
		t.Errorf("Expected 1 dropped report, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("Expected registered metric families")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveEvent("join", time.Second)
	m.SetConnections(1)
	m.SetRooms(1)
	m.GameFinished("draw")
	m.ScoreReport("failed")
	m.ScoreDropped()
	m.HandlerPanic()
}
