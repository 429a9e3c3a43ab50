package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"adscout/internal/core/domain"
	"adscout/internal/core/ports"
)

func request(brand string, n int) domain.ScrapeRequest {
	return domain.ScrapeRequest{
		BrandName:        brand,
		TargetCount:      n,
		ImpressionPeriod: domain.ImpressionLast30d,
		StartedWithin:    domain.StartedLast90d,
	}
}

func assertShape(t *testing.T, req domain.ScrapeRequest, res *domain.ScrapeResult) {
	t.Helper()
	if res == nil {
		t.Fatal("nil result")
	}
	if res.TotalCount != len(res.Ads) {
		t.Fatalf("TotalCount = %d, len(Ads) = %d", res.TotalCount, len(res.Ads))
	}
	if len(res.Ads) > req.EffectiveCount() {
		t.Fatalf("len(Ads) = %d exceeds %d", len(res.Ads), req.EffectiveCount())
	}
}

func TestScrapeWithoutCredentials(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil)

	for _, n := range []int{1, 5, 10, 42} {
		req := request("Acme", n)
		out := o.Run(context.Background(), req)

		assertShape(t, req, out.Result)
		if out.Source != SourceFallback || out.Reason != ReasonConfigAbsent {
			t.Fatalf("outcome = %s, want fallback (config_absent)", out)
		}
		if out.Result.BrandName != "Acme" {
			t.Errorf("BrandName = %q", out.Result.BrandName)
		}
		if len(out.Result.Ads) != min(n, 10) {
			t.Errorf("len(Ads) = %d, want %d", len(out.Result.Ads), min(n, 10))
		}
		for _, ad := range out.Result.Ads {
			if ad.MediaThumbnailURL == nil {
				t.Error("fallback ad without thumbnail")
			}
			if !slices.Contains(fallbackHeadlines, ad.Headline) {
				t.Errorf("headline %q not from template pool", ad.Headline)
			}
		}
	}
}

func TestScrapePollsToSuccessAndCaches(t *testing.T) {
	client := &fakeClient{
		statuses: []ports.RunStatus{ports.RunRunning, ports.RunRunning, ports.RunSucceeded},
		items:    rawItems(3),
	}
	o := newTestOrchestrator(t, client, nil)
	req := request("Acme", 10)

	out := o.Run(context.Background(), req)

	assertShape(t, req, out.Result)
	if out.Source != SourceRemote || out.Degraded() {
		t.Fatalf("outcome = %s, want clean remote", out)
	}
	if len(out.Result.Ads) != 3 {
		t.Fatalf("len(Ads) = %d, want 3", len(out.Result.Ads))
	}
	c := client.counts()
	if c.statusCalls != 3 {
		t.Errorf("statusCalls = %d, want 3", c.statusCalls)
	}
	if c.lastInput.Count != 10 || c.lastLimit != 10 {
		t.Errorf("count/limit = %d/%d, want 10/10", c.lastInput.Count, c.lastLimit)
	}
	if len(c.aborts) != 0 {
		t.Errorf("aborts = %v, want none", c.aborts)
	}

	again := o.Run(context.Background(), req)
	if again.Source != SourceCache || again.Result != out.Result {
		t.Fatalf("second call = %s, want cached pointer", again)
	}
	if got := client.counts().starts; got != 1 {
		t.Fatalf("starts = %d, want 1", got)
	}
	if _, ok := o.registry.active(); ok {
		t.Fatal("registry slot not released")
	}
}

func TestScrapeCacheKeyNormalization(t *testing.T) {
	client := &fakeClient{statuses: []ports.RunStatus{ports.RunSucceeded}, items: rawItems(2)}
	o := newTestOrchestrator(t, client, nil)

	first := o.Scrape(context.Background(), request(" Nike ", 5))
	second := o.Scrape(context.Background(), request("NIKE", 5))

	if first != second {
		t.Fatal("normalized brand names did not share a cache entry")
	}
	if got := client.counts().starts; got != 1 {
		t.Fatalf("starts = %d, want 1", got)
	}
}

func TestScrapeCacheExpiresAfterTTL(t *testing.T) {
	clock := newManualClock()
	client := &fakeClient{statuses: []ports.RunStatus{ports.RunSucceeded}, items: rawItems(2)}
	o := newTestOrchestrator(t, client, clock)
	req := request("Acme", 5)

	o.Scrape(context.Background(), req)
	clock.Advance(9 * time.Minute)
	o.Scrape(context.Background(), req)
	if got := client.counts().starts; got != 1 {
		t.Fatalf("starts within TTL = %d, want 1", got)
	}

	clock.Advance(time.Minute)
	out := o.Run(context.Background(), req)
	if out.Source != SourceRemote {
		t.Fatalf("outcome after TTL = %s, want remote", out)
	}
	if got := client.counts().starts; got != 2 {
		t.Fatalf("starts after TTL = %d, want 2", got)
	}
}

func TestClearCacheForcesRemote(t *testing.T) {
	client := &fakeClient{statuses: []ports.RunStatus{ports.RunSucceeded}, items: rawItems(1)}
	o := newTestOrchestrator(t, client, nil)
	req := request("Acme", 5)

	o.Scrape(context.Background(), req)
	o.ClearCache()
	out := o.Run(context.Background(), req)

	if out.Source != SourceRemote {
		t.Fatalf("outcome = %s, want remote", out)
	}
	if got := client.counts().starts; got != 2 {
		t.Fatalf("starts = %d, want 2", got)
	}
}

func TestScrapeSubmissionFailure(t *testing.T) {
	client := &fakeClient{startErr: errors.New("402 payment required")}
	o := newTestOrchestrator(t, client, nil)
	req := request("Acme", 4)

	out := o.Run(context.Background(), req)
	assertShape(t, req, out.Result)
	if out.Source != SourceFallback || out.Reason != ReasonSubmissionFailed {
		t.Fatalf("outcome = %s", out)
	}
	if len(out.Result.Ads) != 4 {
		t.Fatalf("len(Ads) = %d, want 4", len(out.Result.Ads))
	}

	o.Run(context.Background(), req)
	if got := client.counts().starts; got != 2 {
		t.Fatalf("fallback was cached: starts = %d, want 2", got)
	}
}

func TestScrapeRemoteFailure(t *testing.T) {
	t.Run("partial items are served and cached", func(t *testing.T) {
		client := &fakeClient{statuses: []ports.RunStatus{ports.RunRunning, ports.RunFailed}, items: rawItems(2)}
		o := newTestOrchestrator(t, client, nil)

		out := o.Run(context.Background(), request("Acme", 5))
		if out.Source != SourceRemote || out.Reason != ReasonPartialRemoteFailure {
			t.Fatalf("outcome = %s", out)
		}
		if len(out.Result.Ads) != 2 {
			t.Fatalf("len(Ads) = %d", len(out.Result.Ads))
		}
		if again := o.Run(context.Background(), request("acme", 5)); again.Source != SourceCache {
			t.Fatalf("partial result not cached: %s", again)
		}
	})

	for _, status := range []ports.RunStatus{ports.RunFailed, ports.RunAborted, ports.RunTimedOut} {
		t.Run("empty dataset after "+string(status), func(t *testing.T) {
			client := &fakeClient{statuses: []ports.RunStatus{status}}
			o := newTestOrchestrator(t, client, nil)
			req := request("Acme", 5)

			out := o.Run(context.Background(), req)
			assertShape(t, req, out.Result)
			if out.Source != SourceFallback || out.Reason != ReasonNoData {
				t.Fatalf("outcome = %s", out)
			}
			c := client.counts()
			if c.datasetCalls != 1 {
				t.Errorf("datasetCalls = %d, want 1", c.datasetCalls)
			}
			if len(c.aborts) != 0 {
				t.Errorf("aborts = %v, want none", c.aborts)
			}

			o.Run(context.Background(), req)
			if got := client.counts().starts; got != 2 {
				t.Fatalf("fallback was cached: starts = %d", got)
			}
		})
	}

	t.Run("dataset fetch error", func(t *testing.T) {
		client := &fakeClient{statuses: []ports.RunStatus{ports.RunSucceeded}, itemsErr: errors.New("reset")}
		o := newTestOrchestrator(t, client, nil)
		if out := o.Run(context.Background(), request("Acme", 5)); out.Reason != ReasonNoData {
			t.Fatalf("outcome = %s", out)
		}
	})
}

func TestScrapeLocalTimeout(t *testing.T) {
	const (
		interval = 5 * time.Millisecond
		budget   = 60 * time.Millisecond
	)

	for _, tc := range []struct {
		name       string
		items      []ports.RawItem
		wantSource Source
		wantReason Reason
	}{
		{"with partial data", rawItems(2), SourceRemote, ReasonPartialLocalTimeout},
		{"without data", nil, SourceFallback, ReasonNoData},
	} {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{items: tc.items}
			o := NewOrchestrator(Options{
				Client:       client,
				PollInterval: interval,
				PollBudget:   budget,
			})

			start := time.Now()
			out := o.Run(context.Background(), request("Acme", 5))
			elapsed := time.Since(start)

			if out.Source != tc.wantSource || out.Reason != tc.wantReason {
				t.Fatalf("outcome = %s, want %s (%s)", out, tc.wantSource, tc.wantReason)
			}
			c := client.counts()
			if len(c.aborts) != 1 || c.aborts[0] != "run-1" {
				t.Fatalf("aborts = %v, want exactly [run-1]", c.aborts)
			}
			if c.datasetCalls != 1 {
				t.Errorf("datasetCalls = %d, want 1", c.datasetCalls)
			}
			if elapsed < budget {
				t.Errorf("resolved after %v, before the %v budget", elapsed, budget)
			}
			// Scheduling slack on top of budget + one interval.
			if limit := budget + interval + 200*time.Millisecond; elapsed > limit {
				t.Errorf("resolved after %v, want <= %v", elapsed, limit)
			}
		})
	}
}

func TestScrapeTransientStatusErrors(t *testing.T) {
	client := &fakeClient{
		statuses: []ports.RunStatus{ports.RunRunning, ports.RunRunning, ports.RunRunning, ports.RunSucceeded},
		statusErr: func(call int) error {
			if call < 3 {
				return errors.New("connection reset")
			}
			return nil
		},
		items: rawItems(1),
	}
	o := newTestOrchestrator(t, client, nil)

	out := o.Run(context.Background(), request("Acme", 5))
	if out.Source != SourceRemote || out.Degraded() {
		t.Fatalf("outcome = %s, want clean remote", out)
	}
	if c := client.counts(); len(c.aborts) != 0 {
		t.Fatalf("aborts = %v, want none", c.aborts)
	}
}

func TestAbortActiveRunIdle(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client, nil)

	if got := o.AbortActiveRun(context.Background()); got.Aborted {
		t.Fatal("Aborted = true with no run in flight")
	}
	c := client.counts()
	if len(c.aborts) != 0 || c.starts != 0 || c.statusCalls != 0 {
		t.Fatalf("idle abort had side effects: %+v", c)
	}
}

func TestAbortActiveRunStopsPolling(t *testing.T) {
	client := &fakeClient{items: rawItems(1)} // RUNNING forever
	o := NewOrchestrator(Options{
		Client:       client,
		PollInterval: 5 * time.Millisecond,
		PollBudget:   time.Minute,
	})

	var (
		wg  sync.WaitGroup
		out Outcome
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		out = o.Run(context.Background(), request("Acme", 5))
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := o.registry.active(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run never registered")
		}
		time.Sleep(time.Millisecond)
	}

	if got := o.AbortActiveRun(context.Background()); !got.Aborted {
		t.Fatal("Aborted = false with a run in flight")
	}
	wg.Wait()

	if out.Source != SourceRemote || out.Reason != ReasonPartialStopped {
		t.Fatalf("outcome = %s, want remote (partial_stopped)", out)
	}
	c := client.counts()
	if len(c.aborts) != 1 || c.aborts[0] != "run-1" {
		t.Fatalf("aborts = %v, want [run-1]", c.aborts)
	}
	if _, ok := o.registry.active(); ok {
		t.Fatal("registry slot not released after stop")
	}
	if got := o.AbortActiveRun(context.Background()); got.Aborted {
		t.Fatal("second abort should be a no-op")
	}
}

func TestScrapeCallerCancellation(t *testing.T) {
	client := &fakeClient{items: rawItems(3)}
	o := NewOrchestrator(Options{
		Client:       client,
		PollInterval: 5 * time.Millisecond,
		PollBudget:   time.Minute,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	req := request("Acme", 5)
	out := o.Run(ctx, req)

	assertShape(t, req, out.Result)
	if out.Source != SourceFallback || out.Reason != ReasonNoData {
		t.Fatalf("outcome = %s", out)
	}
	if c := client.counts(); len(c.aborts) != 1 {
		t.Fatalf("aborts = %v, want one", c.aborts)
	}
}

func TestScrapeRecoversFromPanic(t *testing.T) {
	client := &fakeClient{panicOn: "start"}
	o := newTestOrchestrator(t, client, nil)
	req := request("Acme", 3)

	out := o.Run(context.Background(), req)

	assertShape(t, req, out.Result)
	if out.Source != SourceFallback || out.Reason != ReasonPanic {
		t.Fatalf("outcome = %s", out)
	}
	if len(out.Result.Ads) != 3 {
		t.Fatalf("len(Ads) = %d", len(out.Result.Ads))
	}
}

func TestScrapeInvalidRequest(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client, nil)

	for _, req := range []domain.ScrapeRequest{request("   ", 5), request("Acme", 0), request("Acme", -1)} {
		out := o.Run(context.Background(), req)
		assertShape(t, req, out.Result)
		if out.Reason != ReasonInvalidRequest {
			t.Errorf("%+v: outcome = %s", req, out)
		}
	}
	if got := client.counts().starts; got != 0 {
		t.Fatalf("starts = %d, want 0", got)
	}
}

func TestScrapeShapeInvariant(t *testing.T) {
	clients := map[string]func() *fakeClient{
		"success":   func() *fakeClient { return &fakeClient{statuses: []ports.RunStatus{ports.RunSucceeded}, items: rawItems(15)} },
		"failed":    func() *fakeClient { return &fakeClient{statuses: []ports.RunStatus{ports.RunFailed}} },
		"no submit": func() *fakeClient { return &fakeClient{startErr: errors.New("nope")} },
	}

	for name, newClient := range clients {
		for _, n := range []int{-3, 0, 1, 7, 10, 11, 100} {
			o := newTestOrchestrator(t, newClient(), nil)
			req := request("Brand", n)
			res := o.Scrape(context.Background(), req)
			if res.TotalCount != len(res.Ads) || len(res.Ads) > max(0, min(n, 10)) {
				t.Errorf("%s/%d: TotalCount=%d len=%d", name, n, res.TotalCount, len(res.Ads))
			}
		}
	}
}
