package ports

import (
	"context"
)

// RunStatus is the lifecycle state of a remote actor run as reported by
// the provider.
type RunStatus string

const (
	RunReady     RunStatus = "READY"
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
	RunAborting  RunStatus = "ABORTING"
	RunAborted   RunStatus = "ABORTED"
	RunTimingOut RunStatus = "TIMING-OUT"
	RunTimedOut  RunStatus = "TIMED-OUT"
)

// Terminal reports whether the provider will not advance the run further.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunSucceeded, RunFailed, RunAborted, RunTimedOut:
		return true
	}
	return false
}

// RemoteRun identifies one execution of an actor and the dataset it writes to.
type RemoteRun struct {
	RunID     string
	DatasetID string
	Status    RunStatus
}

// RunInput is what the actor is asked to scrape.
type RunInput struct {
	SearchURL string
	Count     int
}

// ActorClient defines the contract for driving scrape jobs on a hosted
// actor platform.
type ActorClient interface {
	// StartRun launches a new actor run. Any non-success response is an error.
	StartRun(ctx context.Context, input RunInput) (*RemoteRun, error)

	// RunStatus reads the current status of a run.
	RunStatus(ctx context.Context, runID string) (RunStatus, error)

	// DatasetItems fetches up to limit items from a run's dataset.
	// Items that cannot be decoded are skipped.
	DatasetItems(ctx context.Context, datasetID string, limit int) ([]RawItem, error)

	// AbortRun asks the provider to stop a run.
	AbortRun(ctx context.Context, runID string) error
}
