package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"release_tracker/internal/telemetry"
)

var (
	ErrTaskRunning    = errors.New("task already running")
	ErrUnknownTask    = errors.New("unknown task")
	ErrAlreadyStarted = errors.New("scheduler already started")

	errTaskPanicked = errors.New("task panicked")
)

// Task is a periodic background job. Run receives a context bounded by
// Timeout when one is set.
type Task struct {
	Name         string
	InitialDelay time.Duration
	Interval     time.Duration
	Timeout      time.Duration
	Run          func(ctx context.Context) error
}

type task struct {
	Task
	running atomic.Bool
}

// Scheduler runs registered tasks on fixed intervals. A task never overlaps
// with itself; different tasks run independently.
type Scheduler struct {
	mu     sync.Mutex
	tasks  []*task
	byName map[string]*task
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *telemetry.TaskMetrics
	logger  *slog.Logger
}

func NewScheduler(metrics *telemetry.TaskMetrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		byName:  make(map[string]*task),
		metrics: metrics,
		logger:  logger.With("component", "scheduler"),
	}
}

// Register adds a task. Tasks registered after Start are only reachable
// through RunNow.
func (s *Scheduler) Register(t Task) error {
	if t.Name == "" || t.Run == nil {
		return errors.New("task needs a name and a run function")
	}
	if t.Interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", t.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[t.Name]; ok {
		return fmt.Errorf("task %s already registered", t.Name)
	}
	rt := &task{Task: t}
	s.tasks = append(s.tasks, rt)
	s.byName[t.Name] = rt
	return nil
}

// Start runs every registered task until ctx is cancelled or Stop is called.
// It blocks until all task loops have returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	tasks := append([]*task(nil), s.tasks...)
	s.wg.Add(len(tasks))
	s.mu.Unlock()

	s.logger.Info("scheduler started", "tasks", len(tasks))

	for _, t := range tasks {
		go s.loop(runCtx, t)
	}

	<-runCtx.Done()
	s.wg.Wait()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

// Stop cancels all pending timers and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// RunNow runs the named task immediately on the caller's goroutine, sharing
// the re-entrancy guard with scheduled runs.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.byName[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.execute(ctx, t)
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	defer s.wg.Done()

	timer := time.NewTimer(t.InitialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	_ = s.execute(ctx, t)

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, t)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, t *task) error {
	logger := s.logger.With("task", t.Name)

	if !t.running.CompareAndSwap(false, true) {
		logger.Warn("previous run still in progress, skipping")
		s.metrics.RecordRun(ctx, t.Name, telemetry.OutcomeSkipped, 0)
		return ErrTaskRunning
	}
	defer t.running.Store(false)

	runCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := safeRun(runCtx, t.Run)
	duration := time.Since(start)

	switch {
	case err == nil:
		logger.Debug("task completed", "duration", duration)
		s.metrics.RecordRun(ctx, t.Name, telemetry.OutcomeSuccess, duration)
	case errors.Is(err, errTaskPanicked):
		logger.Error("task panicked", "error", err, "duration", duration)
		s.metrics.RecordRun(ctx, t.Name, telemetry.OutcomePanic, duration)
	default:
		logger.Error("task failed", "error", err, "duration", duration)
		s.metrics.RecordRun(ctx, t.Name, telemetry.OutcomeError, duration)
	}

	return err
}

func safeRun(ctx context.Context, run func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errTaskPanicked, r)
		}
	}()
	return run(ctx)
}
