package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"docquiz/internal/domain"
)

// scriptedTransport serves a fixed sequence of job observations; the
// last entry repeats if polled past the end.
type scriptedTransport struct {
	fakeTransport
	mu      sync.Mutex
	jobs    []domain.Job
	errs    []error
	fetches int
}

func (t *scriptedTransport) FetchJobStatus(ctx context.Context, jobID string) (domain.Job, error) {
	t.mu.Lock()
	i := t.fetches
	t.fetches++
	if i >= len(t.jobs) {
		i = len(t.jobs) - 1
	}
	job := t.jobs[i]
	var err error
	if i < len(t.errs) {
		err = t.errs[i]
	}
	t.mu.Unlock()
	return job, err
}

func (t *scriptedTransport) fetchCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fetches
}

func running(done, total int) domain.Job {
	return domain.Job{
		JobID:    "job-1",
		Status:   domain.JobRunning,
		Progress: &domain.Progress{Stage: domain.StageGenerating, Done: done, Total: total},
	}
}

func TestPollerResolvesOnDone(t *testing.T) {
	transport := &scriptedTransport{jobs: []domain.Job{
		{JobID: "job-1", Status: domain.JobQueued},
		running(1, 3),
		running(2, 3),
		{JobID: "job-1", Status: domain.JobDone},
	}}
	poller := NewJobPoller(transport, time.Millisecond)

	var observed []domain.JobStatus
	result := <-poller.Start(context.Background(), "job-1", func(job domain.Job) {
		observed = append(observed, job.Status)
	})

	if result.Err != nil {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if result.Job.Status != domain.JobDone {
		t.Fatalf("expected DONE, got %s", result.Job.Status)
	}
	if len(observed) != 4 {
		t.Fatalf("expected 4 progress callbacks, got %d", len(observed))
	}
	if transport.fetchCount() != 4 {
		t.Fatalf("expected 4 fetches, got %d", transport.fetchCount())
	}
}

func TestPollerRejectsOnFailed(t *testing.T) {
	transport := &scriptedTransport{jobs: []domain.Job{
		running(1, 2),
		{
			JobID:  "job-1",
			Status: domain.JobFailed,
			Error:  &domain.JobError{Code: "LLM_ERROR", Message: "generation exploded"},
		},
	}}
	poller := NewJobPoller(transport, time.Millisecond)

	result := <-poller.Start(context.Background(), "job-1", nil)
	if result.Err == nil {
		t.Fatal("expected failure")
	}
	if result.Err.Error() != "generation exploded" {
		t.Fatalf("expected job error message, got %q", result.Err.Error())
	}
	var failed *domain.JobFailedError
	if !errors.As(result.Err, &failed) {
		t.Fatalf("expected JobFailedError, got %T", result.Err)
	}

	fetched := transport.fetchCount()
	time.Sleep(10 * time.Millisecond)
	if transport.fetchCount() != fetched {
		t.Fatal("expected no fetches after terminal status")
	}
}

func TestPollerFailedWithoutErrorUsesGenericMessage(t *testing.T) {
	transport := &scriptedTransport{jobs: []domain.Job{
		{JobID: "job-1", Status: domain.JobFailed},
	}}
	poller := NewJobPoller(transport, time.Millisecond)

	result := <-poller.Start(context.Background(), "job-1", nil)
	if result.Err == nil || result.Err.Error() != "job failed" {
		t.Fatalf("expected generic failure message, got %v", result.Err)
	}
}

func TestPollerRejectsOnTransportFailure(t *testing.T) {
	transportErr := errors.New("connection refused")
	transport := &scriptedTransport{
		jobs: []domain.Job{running(1, 2), {}},
		errs: []error{nil, transportErr},
	}
	poller := NewJobPoller(transport, time.Millisecond)

	calls := 0
	result := <-poller.Start(context.Background(), "job-1", func(domain.Job) { calls++ })
	if !errors.Is(result.Err, transportErr) {
		t.Fatalf("expected transport error, got %v", result.Err)
	}
	if calls != 1 {
		t.Fatalf("expected one progress callback before the failure, got %d", calls)
	}
}

func TestPollerCancelNeverSettles(t *testing.T) {
	transport := &scriptedTransport{jobs: []domain.Job{running(1, 5)}}
	poller := NewJobPoller(transport, time.Millisecond)

	var mu sync.Mutex
	calls := 0
	results := poller.Start(context.Background(), "job-1", func(domain.Job) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	time.Sleep(5 * time.Millisecond)
	poller.Cancel()

	mu.Lock()
	callsAtCancel := calls
	mu.Unlock()

	select {
	case result := <-results:
		t.Fatalf("expected channel to stay open after cancel, got %+v", result)
	case <-time.After(20 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	if calls > callsAtCancel+1 {
		t.Fatalf("expected at most one in-flight callback after cancel, got %d more", calls-callsAtCancel)
	}
}

func TestPollerRestartInvalidatesPreviousRun(t *testing.T) {
	block := make(chan struct{})
	transport := &fakeTransport{
		fetchJobStatus: func(ctx context.Context, jobID string) (domain.Job, error) {
			if jobID == "job-1" {
				<-block
			}
			return domain.Job{JobID: jobID, Status: domain.JobDone}, nil
		},
	}
	poller := NewJobPoller(transport, time.Millisecond)

	firstResults := poller.Start(context.Background(), "job-1", func(domain.Job) {
		t.Error("stale run must not invoke onProgress")
	})

	// Supersede while the first fetch is still in flight.
	secondResults := poller.Start(context.Background(), "job-2", nil)

	close(block)

	result := <-secondResults
	if result.Err != nil || result.Job.JobID != "job-2" {
		t.Fatalf("expected job-2 DONE, got %+v", result)
	}

	select {
	case stale := <-firstResults:
		t.Fatalf("stale run settled: %+v", stale)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPollerClampsRegressingProgress(t *testing.T) {
	transport := &scriptedTransport{jobs: []domain.Job{
		running(3, 5),
		running(1, 5), // out-of-order observation
		{JobID: "job-1", Status: domain.JobDone},
	}}
	poller := NewJobPoller(transport, time.Millisecond)

	var seen []int
	<-poller.Start(context.Background(), "job-1", func(job domain.Job) {
		if job.Progress != nil {
			seen = append(seen, job.Progress.Done)
		}
	})

	if len(seen) != 2 || seen[0] != 3 || seen[1] != 3 {
		t.Fatalf("expected displayed progress [3 3], got %v", seen)
	}
}

func TestPollerProgressAdvancesAcrossStages(t *testing.T) {
	parsing := domain.Job{
		JobID:    "job-1",
		Status:   domain.JobRunning,
		Progress: &domain.Progress{Stage: domain.StageParsing, Done: 1, Total: 1},
	}
	transport := &scriptedTransport{jobs: []domain.Job{
		parsing,
		running(0, 3), // GENERATING restarts its own counter
		{JobID: "job-1", Status: domain.JobDone},
	}}
	poller := NewJobPoller(transport, time.Millisecond)

	var stages []domain.JobStage
	var dones []int
	<-poller.Start(context.Background(), "job-1", func(job domain.Job) {
		if job.Progress != nil {
			stages = append(stages, job.Progress.Stage)
			dones = append(dones, job.Progress.Done)
		}
	})

	if len(stages) != 2 || stages[1] != domain.StageGenerating || dones[1] != 0 {
		t.Fatalf("expected a fresh GENERATING counter, got stages=%v dones=%v", stages, dones)
	}
}

func TestPollerContextCancellationSettlesWithError(t *testing.T) {
	transport := &scriptedTransport{jobs: []domain.Job{running(1, 5)}}
	poller := NewJobPoller(transport, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	results := poller.Start(ctx, "job-1", nil)

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case result := <-results:
		if !errors.Is(result.Err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", result.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected result after context cancellation")
	}
}
