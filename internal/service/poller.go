package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"adscout/internal/core/ports"
)

// resolution is the terminal state the poll loop passed through.
type resolution string

const (
	resolvedSucceeded    resolution = "succeeded"
	resolvedRemoteFailed resolution = "remote_failed"
	resolvedLocalTimeout resolution = "local_timeout"
	resolvedStopped      resolution = "stopped"
	resolvedCancelled    resolution = "cancelled"
)

type pollResult struct {
	items      []ports.RawItem
	resolution resolution
	status     ports.RunStatus
	ticks      int
}

// poller drives one remote run from submission to a dataset fetch.
type poller struct {
	client   ports.ActorClient
	interval time.Duration
	budget   time.Duration
	logger   *zap.Logger
	tracer   trace.Tracer
}

// await polls run until it reaches a terminal status, the local budget runs
// out, the stop channel closes or ctx is done. Stop and ctx are only
// observed while sleeping between ticks. Status read errors are treated as
// a failed tick and never end the loop on their own.
func (p *poller) await(ctx context.Context, run *ports.RemoteRun, limit int, stop <-chan struct{}) pollResult {
	ctx, span := p.tracer.Start(ctx, "poll_run", trace.WithAttributes(attribute.String("run_id", run.RunID)))
	defer span.End()

	log := p.logger.With(zap.String("run_id", run.RunID))
	start := time.Now()
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	res := pollResult{status: run.Status}
	defer func() {
		span.SetAttributes(
			attribute.String("resolution", string(res.resolution)),
			attribute.Int("ticks", res.ticks),
			attribute.Int("items", len(res.items)),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Warn("scrape context done, aborting remote run", zap.Error(ctx.Err()))
			p.abort(context.WithoutCancel(ctx), log, run.RunID)
			res.resolution = resolvedCancelled
			return res
		case <-stop:
			log.Info("stop requested, collecting partial dataset")
			res.items = p.fetch(ctx, log, run.DatasetID, limit)
			res.resolution = resolvedStopped
			return res
		case <-timer.C:
		}

		res.ticks++
		status, err := p.client.RunStatus(ctx, run.RunID)
		if err != nil {
			log.Warn("status check failed, will retry", zap.Int("tick", res.ticks), zap.Error(err))
		} else {
			res.status = status
			switch status {
			case ports.RunSucceeded:
				log.Info("run succeeded", zap.Int("tick", res.ticks))
				res.items = p.fetch(ctx, log, run.DatasetID, limit)
				res.resolution = resolvedSucceeded
				return res
			case ports.RunFailed, ports.RunAborted, ports.RunTimedOut:
				log.Warn("run ended without success, fetching partial dataset", zap.String("status", string(status)))
				res.items = p.fetch(ctx, log, run.DatasetID, limit)
				res.resolution = resolvedRemoteFailed
				return res
			}
		}

		if elapsed := time.Since(start); elapsed >= p.budget {
			log.Warn("poll budget exhausted, aborting remote run",
				zap.Duration("elapsed", elapsed),
				zap.String("last_status", string(res.status)),
			)
			p.abort(ctx, log, run.RunID)
			res.items = p.fetch(ctx, log, run.DatasetID, limit)
			res.resolution = resolvedLocalTimeout
			return res
		}
		timer.Reset(p.interval)
	}
}

func (p *poller) fetch(ctx context.Context, log *zap.Logger, datasetID string, limit int) []ports.RawItem {
	items, err := p.client.DatasetItems(ctx, datasetID, limit)
	if err != nil {
		log.Warn("dataset fetch failed", zap.String("dataset_id", datasetID), zap.Error(err))
		return nil
	}
	log.Debug("dataset fetched", zap.String("dataset_id", datasetID), zap.Int("items", len(items)))
	return items
}

// abort is best effort; failures are logged and swallowed.
func (p *poller) abort(ctx context.Context, log *zap.Logger, runID string) {
	if err := p.client.AbortRun(ctx, runID); err != nil {
		log.Warn("abort failed", zap.Error(err))
	}
}
