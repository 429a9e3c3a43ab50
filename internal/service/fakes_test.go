package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"adscout/internal/core/ports"
)

// fakeClient is a scripted ports.ActorClient.
type fakeClient struct {
	mu sync.Mutex

	startErr  error
	statuses  []ports.RunStatus // consumed in order; the last one repeats
	statusErr func(call int) error
	items     []ports.RawItem
	itemsErr  error
	abortErr  error
	panicOn   string

	starts       int
	statusCalls  int
	datasetCalls int
	aborts       []string
	lastInput    ports.RunInput
	lastLimit    int
}

func (f *fakeClient) StartRun(ctx context.Context, input ports.RunInput) (*ports.RemoteRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn == "start" {
		panic("boom")
	}
	f.starts++
	f.lastInput = input
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &ports.RemoteRun{
		RunID:     fmt.Sprintf("run-%d", f.starts),
		DatasetID: fmt.Sprintf("ds-%d", f.starts),
		Status:    ports.RunReady,
	}, nil
}

func (f *fakeClient) RunStatus(ctx context.Context, runID string) (ports.RunStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.statusCalls
	f.statusCalls++
	if f.statusErr != nil {
		if err := f.statusErr(call); err != nil {
			return "", err
		}
	}
	if len(f.statuses) == 0 {
		return ports.RunRunning, nil
	}
	if call >= len(f.statuses) {
		return f.statuses[len(f.statuses)-1], nil
	}
	return f.statuses[call], nil
}

func (f *fakeClient) DatasetItems(ctx context.Context, datasetID string, limit int) ([]ports.RawItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasetCalls++
	f.lastLimit = limit
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	if limit > 0 && len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeClient) AbortRun(ctx context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborts = append(f.aborts, runID)
	return f.abortErr
}

type fakeCounts struct {
	starts       int
	statusCalls  int
	datasetCalls int
	aborts       []string
	lastInput    ports.RunInput
	lastLimit    int
}

func (f *fakeClient) counts() fakeCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeCounts{
		starts:       f.starts,
		statusCalls:  f.statusCalls,
		datasetCalls: f.datasetCalls,
		aborts:       append([]string(nil), f.aborts...),
		lastInput:    f.lastInput,
		lastLimit:    f.lastLimit,
	}
}

// manualClock is a settable time source.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func rawItems(n int) []ports.RawItem {
	items := make([]ports.RawItem, n)
	for i := range items {
		items[i] = ports.RawItem{
			AdArchiveID: ports.FlexString(fmt.Sprintf("%d", 1000+i)),
			PageName:    "Acme",
			Snapshot: ports.Snapshot{
				Cards: []ports.Card{{Title: fmt.Sprintf("Ad %d", i), ResizedImageURL: "http://img/x.png"}},
			},
		}
	}
	return items
}

// newTestOrchestrator wires an orchestrator with millisecond polling.
func newTestOrchestrator(t *testing.T, client ports.ActorClient, clock *manualClock) *Orchestrator {
	t.Helper()
	opts := Options{
		PollInterval: 2 * time.Millisecond,
		PollBudget:   time.Second,
		Logger:       zaptest.NewLogger(t),
	}
	if client != nil {
		opts.Client = client
	}
	if clock != nil {
		opts.Now = clock.Now
	}
	return NewOrchestrator(opts)
}
