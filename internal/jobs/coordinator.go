// Package jobs provides lease-based mutual exclusion and checkpoint-resume
// for the background jobs: embedding backfill, taxonomy reclassification,
// retention cleanup, and remote sync.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/store"
)

// ID names a background job. The set is closed: each job carries its own
// candidate filter and per-item processor, composed over one shared
// lease+checkpoint engine.
type ID string

const (
	Backfill   ID = "backfill"
	Reclassify ID = "reclassify"
	Cleanup    ID = "cleanup"
	Sync       ID = "sync"
)

const (
	// LeaseTTL bounds how long a run may hold a job lease before a crashed
	// run is considered abandoned.
	LeaseTTL = 90 * time.Second

	// SubBatchSize is how many items are processed between checkpoint
	// persists and throttle delays.
	SubBatchSize = 25

	// DefaultBatchLimit bounds one invocation of a batch job.
	DefaultBatchLimit = 100
)

// ErrNotAcquired reports that another run holds the job's lease. It is the
// expected outcome of overlapping triggers and must be treated as a no-op by
// callers, not as a failure.
var ErrNotAcquired = errors.New("job lease held by another run")

// Coordinator owns the JobLease records and serializes lease acquisition.
type Coordinator struct {
	store    store.Store
	log      *slog.Logger
	now      func() time.Time
	leaseTTL time.Duration

	// mu makes the read-modify-write of a lease record atomic within the
	// process; cross-restart safety comes from lease expiry.
	mu sync.Mutex
}

// NewCoordinator creates a coordinator over the given store.
func NewCoordinator(st store.Store, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		store:    st,
		log:      log,
		now:      time.Now,
		leaseTTL: LeaseTTL,
	}
}

// SetClock overrides the coordinator clock (tests).
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// Acquire attempts to take the lease for a job. If the job is currently
// running and its lease has not expired, ErrNotAcquired is returned with no
// side effect. Otherwise the lease is marked running and the record is
// returned, including the previous cursor.
func (c *Coordinator) Acquire(ctx context.Context, id ID) (*model.JobLease, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lease, err := c.store.GetLease(ctx, string(id))
	if err != nil {
		return nil, fmt.Errorf("get lease %s: %w", id, err)
	}
	now := c.now()
	if lease == nil {
		// Created lazily on first acquisition.
		lease = &model.JobLease{Job: string(id)}
	} else if lease.Running && lease.LeaseExpiresAt.After(now) {
		return nil, ErrNotAcquired
	}

	lease.Running = true
	lease.LeaseExpiresAt = now.Add(c.leaseTTL)
	if err := c.store.PutLease(ctx, lease); err != nil {
		return nil, fmt.Errorf("put lease %s: %w", id, err)
	}
	return lease, nil
}

// Checkpoint persists the lease's current cursor and extends the lease.
func (c *Coordinator) Checkpoint(ctx context.Context, lease *model.JobLease) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	lease.LeaseExpiresAt = c.now().Add(c.leaseTTL)
	if err := c.store.PutLease(ctx, lease); err != nil {
		return fmt.Errorf("checkpoint lease %s: %w", lease.Job, err)
	}
	return nil
}

// Release marks the lease not running, records the run's outcome, and
// persists it. The lease is never left dangling: release failures are logged
// but do not propagate.
func (c *Coordinator) Release(ctx context.Context, lease *model.JobLease, runErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	lease.Running = false
	lease.LastRunAt = &now
	// Per-item failure summaries written by the run itself are preserved;
	// a critical-section error takes precedence.
	if runErr != nil {
		lease.LastError = runErr.Error()
	}
	if err := c.store.PutLease(ctx, lease); err != nil {
		c.log.Error("release lease failed", "job", lease.Job, "error", err)
	}
}
