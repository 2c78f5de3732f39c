package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of background work run by the Scheduler.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs registered tasks in registration order, once or on an
// interval. A run never overlaps the previous one.
type Scheduler struct {
	mu      sync.Mutex
	runMu   sync.Mutex
	tasks   []Task
	timeout time.Duration
	logger  *slog.Logger
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler returns a scheduler that bounds each task run by timeout.
// A zero timeout disables the bound.
func NewScheduler(timeout time.Duration) *Scheduler {
	return &Scheduler{
		tasks:   make([]Task, 0),
		timeout: timeout,
		logger:  slog.Default().With("component", "task_scheduler"),
	}
}

func (s *Scheduler) RegisterTask(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	s.logger.Info("task registered", "task", task.Name())
}

// RunOnce runs every task and returns how many failed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	tasks := append([]Task(nil), s.tasks...)
	s.mu.Unlock()

	failed := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		if err := s.run(ctx, task); err != nil {
			failed++
			s.logger.Error("task failed",
				"task", task.Name(),
				"error", err,
				"duration", time.Since(start))
			continue
		}
		s.logger.Debug("task completed",
			"task", task.Name(),
			"duration", time.Since(start))
	}
	return failed
}

func (s *Scheduler) run(ctx context.Context, task Task) (err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run(ctx)
}

// StartPeriodic runs the tasks immediately and then every interval until
// Stop is called or ctx is done.
func (s *Scheduler) StartPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.RunOnce(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	s.logger.Info("scheduler started", "interval", interval)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
