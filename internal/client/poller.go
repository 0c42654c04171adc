package client

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/rnaseq-qc/internal/types"
)

// DefaultPollInterval is the fixed delay between status polls.
const DefaultPollInterval = 2 * time.Second

// Poller is the polling session for job status. It owns the current
// target job and the last snapshot; each Watch call supersedes the
// previous target, and a generation counter ensures a late response for a
// superseded job can never overwrite a newer snapshot.
//
// Polling stops when the job reports progress >= 100 or a terminal
// status, and stops silently on any transport or application failure,
// leaving the last-known snapshot in place.
type Poller struct {
	client   *Client
	interval time.Duration
	onUpdate func(*types.Job)

	mu       sync.Mutex
	gen      int
	snapshot *types.Job
}

// NewPoller creates a poller. An interval of 0 uses DefaultPollInterval.
// onUpdate, if non-nil, is invoked with each accepted snapshot.
func NewPoller(c *Client, interval time.Duration, onUpdate func(*types.Job)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{client: c, interval: interval, onUpdate: onUpdate}
}

// Snapshot returns the last accepted job snapshot, or nil before the
// first successful poll.
func (p *Poller) Snapshot() *types.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// Stop invalidates the current watch; any in-flight poll result is
// discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.gen++
	p.mu.Unlock()
}

// Watch starts polling the given job, superseding any previous target,
// and returns a channel that is closed when this watch ends (terminal
// snapshot, failure, supersession, or context cancellation).
func (p *Poller) Watch(ctx context.Context, jobID string) <-chan struct{} {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.loop(ctx, jobID, gen)
	}()
	return done
}

// WatchSync polls the job until it ends and returns the final snapshot,
// or the poll error that stopped the session.
func (p *Poller) WatchSync(ctx context.Context, jobID string) (*types.Job, error) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	return p.run(ctx, jobID, gen)
}

func (p *Poller) loop(ctx context.Context, jobID string, gen int) {
	_, _ = p.run(ctx, jobID, gen)
}

func (p *Poller) run(ctx context.Context, jobID string, gen int) (*types.Job, error) {
	for {
		job, err := p.client.Status(ctx, jobID)
		if err != nil {
			// No automatic retry: the last snapshot stays visible.
			return p.Snapshot(), err
		}

		p.mu.Lock()
		if gen != p.gen {
			// A newer Watch superseded this session while the request
			// was in flight; drop the stale snapshot.
			p.mu.Unlock()
			return nil, nil
		}
		p.snapshot = job
		cb := p.onUpdate
		p.mu.Unlock()

		if cb != nil {
			cb(job)
		}
		if job.Done() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-time.After(p.interval):
		}
	}
}
