package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobStatus represents the outcome of a job run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
	JobStatusSkipped JobStatus = "SKIPPED"
)

// JobFunc is the body of a scheduled job
type JobFunc func(ctx context.Context) error

// Job is an interval job. Runs of the same job never overlap.
type Job struct {
	Name       string
	Interval   time.Duration
	Run        JobFunc
	RunOnStart bool
}

// JobRun records one execution of a job
type JobRun struct {
	Name       string        `json:"name"`
	Status     JobStatus     `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	TotalRuns  int           `json:"total_runs"`
	TotalFails int           `json:"total_fails"`
}

// RunnerConfig holds runner configuration
type RunnerConfig struct {
	// JobTimeout bounds a single run
	JobTimeout time.Duration
}

// DefaultRunnerConfig returns default runner configuration
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		JobTimeout: 2 * time.Minute,
	}
}

// Runner runs registered jobs, each on its own ticker
type Runner struct {
	config   RunnerConfig
	logger   *zap.Logger
	observer RunObserver

	mu        sync.Mutex
	jobs      map[string]Job
	active    map[string]bool
	lastRuns  map[string]JobRun
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// RunObserver is notified after every completed job run
type RunObserver interface {
	ObserveJobRun(ctx context.Context, name, status string, duration time.Duration)
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig, logger *zap.Logger) *Runner {
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultRunnerConfig().JobTimeout
	}
	return &Runner{
		config:   config,
		logger:   logger,
		jobs:     make(map[string]Job),
		active:   make(map[string]bool),
		lastRuns: make(map[string]JobRun),
	}
}

// SetObserver sets the run observer. Call before Start.
func (r *Runner) SetObserver(observer RunObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = observer
}

// Register adds a job. Jobs must be registered before Start.
func (r *Runner) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidJob, job.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return ErrSchedulerRunning
	}
	if _, exists := r.jobs[job.Name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, job.Name)
	}
	r.jobs[job.Name] = job
	return nil
}

// Start starts one loop per registered job
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	jobs := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	for _, job := range jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}

	r.logger.Info("Job runner started",
		zap.Int("jobs", len(jobs)),
		zap.Duration("job_timeout", r.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the loops to exit
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Job runner stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Job runner stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether Start has been called without Stop
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRunning
}

// RunNow executes a job immediately, outside its ticker
func (r *Runner) RunNow(ctx context.Context, name string) (JobRun, error) {
	r.mu.Lock()
	job, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return JobRun{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	run := r.execute(ctx, job)
	if run.Status == JobStatusSkipped {
		return run, ErrJobInProgress
	}
	return run, nil
}

// LastRuns returns the latest run of every job that has run, sorted by name
func (r *Runner) LastRuns() []JobRun {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs := make([]JobRun, 0, len(r.lastRuns))
	for _, run := range r.lastRuns {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name < runs[j].Name })
	return runs
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	if job.RunOnStart {
		r.execute(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Job loop stopping", zap.String("job", job.Name))
			return
		case <-ticker.C:
			r.execute(ctx, job)
		}
	}
}

// execute runs job once under the job timeout
func (r *Runner) execute(ctx context.Context, job Job) JobRun {
	r.mu.Lock()
	if r.active[job.Name] {
		r.mu.Unlock()
		r.logger.Debug("Job still running, skipping tick", zap.String("job", job.Name))
		return JobRun{Name: job.Name, Status: JobStatusSkipped, StartedAt: time.Now()}
	}
	r.active[job.Name] = true
	prev := r.lastRuns[job.Name]
	r.mu.Unlock()

	run := JobRun{
		Name:       job.Name,
		Status:     JobStatusRunning,
		StartedAt:  time.Now(),
		TotalRuns:  prev.TotalRuns + 1,
		TotalFails: prev.TotalFails,
	}

	jobCtx, cancel := context.WithTimeout(ctx, r.config.JobTimeout)
	err := r.safeRun(jobCtx, job)
	cancel()

	run.Duration = time.Since(run.StartedAt)
	if err != nil {
		run.Status = JobStatusFailed
		run.Error = err.Error()
		run.TotalFails++
		r.logger.Error("Job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", run.Duration),
			zap.Error(err),
		)
	} else {
		run.Status = JobStatusSuccess
		r.logger.Debug("Job completed",
			zap.String("job", job.Name),
			zap.Duration("duration", run.Duration),
		)
	}

	r.mu.Lock()
	r.active[job.Name] = false
	r.lastRuns[job.Name] = run
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer.ObserveJobRun(ctx, job.Name, string(run.Status), run.Duration)
	}
	return run
}

// safeRun converts a panic in the job body into an error
func (r *Runner) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, rec)
		}
	}()
	return job.Run(ctx)
}
