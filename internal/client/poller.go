package client

import (
	"context"
	"sync"
	"time"

	"docquiz/internal/domain"
)

// DefaultPollInterval is the delay between status fetches.
const DefaultPollInterval = 2 * time.Second

// PollResult is the terminal outcome of one polling run. Exactly one of
// Job (a DONE observation) or Err is meaningful; on FAILED both are set
// so callers can still inspect the final observation.
type PollResult struct {
	Job domain.Job
	Err error
}

// JobPoller drives repeated status fetches for a single job until a
// terminal outcome. Each Start opens a new polling epoch identified by a
// generation token; a later Start or Cancel invalidates the previous
// epoch, and any response still in flight for it is dropped silently.
type JobPoller struct {
	transport Transport
	interval  time.Duration

	mu   sync.Mutex
	gen  uint64
	high *domain.Progress
}

// NewJobPoller builds a poller. A non-positive interval selects
// DefaultPollInterval.
func NewJobPoller(transport Transport, interval time.Duration) *JobPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &JobPoller{transport: transport, interval: interval}
}

// Start begins polling jobID. The first fetch happens immediately; every
// successful observation is passed to onProgress (if non-nil) before the
// status is evaluated. The returned channel receives exactly one
// PollResult when the run ends with DONE, FAILED, a transport failure,
// or ctx cancellation - and nothing at all if Cancel or a newer Start
// supersedes the run first.
func (p *JobPoller) Start(ctx context.Context, jobID string, onProgress func(domain.Job)) <-chan PollResult {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.high = nil
	p.mu.Unlock()

	out := make(chan PollResult, 1)
	go p.run(ctx, gen, jobID, onProgress, out)
	return out
}

// Cancel invalidates the current polling epoch. No further fetch fires
// and the outstanding result channel never settles. Calling Cancel after
// the run already settled is a no-op.
func (p *JobPoller) Cancel() {
	p.mu.Lock()
	p.gen++
	p.mu.Unlock()
}

func (p *JobPoller) run(ctx context.Context, gen uint64, jobID string, onProgress func(domain.Job), out chan<- PollResult) {
	for {
		job, err := p.transport.FetchJobStatus(ctx, jobID)
		if !p.current(gen) {
			return
		}
		if err != nil {
			out <- PollResult{Err: err}
			return
		}

		job = p.clampProgress(gen, job)
		if onProgress != nil {
			onProgress(job)
		}

		switch job.Status {
		case domain.JobDone:
			out <- PollResult{Job: job}
			return
		case domain.JobFailed:
			out <- PollResult{Job: job, Err: domain.NewJobFailedError(job)}
			return
		}

		select {
		case <-time.After(p.interval):
		case <-ctx.Done():
			if p.current(gen) {
				out <- PollResult{Err: ctx.Err()}
			}
			return
		}
		if !p.current(gen) {
			return
		}
	}
}

func (p *JobPoller) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen == p.gen
}

// clampProgress keeps displayed progress monotonic within one epoch: an
// out-of-order response can never walk the stage or progress.done
// backwards. A later stage legitimately restarts its own done counter.
func (p *JobPoller) clampProgress(gen uint64, job domain.Job) domain.Job {
	if job.Progress == nil {
		return job
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return job
	}

	progress := *job.Progress
	if p.high != nil {
		switch {
		case stageRank(progress.Stage) < stageRank(p.high.Stage):
			progress = *p.high
		case progress.Stage == p.high.Stage && progress.Done < p.high.Done:
			progress.Done = p.high.Done
		}
	}
	high := progress
	p.high = &high
	job.Progress = &progress
	return job
}

func stageRank(stage domain.JobStage) int {
	switch stage {
	case domain.StageParsing:
		return 0
	case domain.StageGenerating:
		return 1
	case domain.StageVerifying:
		return 2
	case domain.StageSaving:
		return 3
	default:
		return -1
	}
}
