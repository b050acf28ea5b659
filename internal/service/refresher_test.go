package service

import (
	"context"
	"testing"
	"time"
)

func TestNewRefresherRejectsBadSchedule(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)
	if _, err := NewRefresher(svc, "whenever", testLogger(t)); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRefresherTrigger(t *testing.T) {
	src := jazzSource()
	svc := newTestService(t, src, nil)

	r, err := NewRefresher(svc, "@every 1h", testLogger(t))
	if err != nil {
		t.Fatalf("NewRefresher failed: %v", err)
	}
	r.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r.Stop(ctx)
	}()

	r.Trigger()
	stats := svc.Stats()
	if !stats.Loaded || stats.Items != 5 {
		t.Errorf("stats after trigger = %+v", stats)
	}

	before := stats.SnapshotID
	r.Trigger()
	if svc.Stats().SnapshotID == before {
		t.Error("trigger should publish a new snapshot")
	}
	if src.fetches.Load() != 2 {
		t.Errorf("fetches = %d", src.fetches.Load())
	}
}
