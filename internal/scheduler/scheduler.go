// Package scheduler runs the bot's periodic work: fixed-interval tasks and a
// cron-expression lane evaluated once a minute.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// Task is one unit of periodic work. Errors are logged; the loop continues.
type Task func(ctx context.Context) error

type cronJob struct {
	name string
	expr string
	task Task
}

// Scheduler owns every periodic task. Register with Every/Cron before Start;
// cancellation of the start context stops all loops.
type Scheduler struct {
	gron *gronx.Gronx

	mu       sync.Mutex
	cronJobs []cronJob
	interval []struct {
		name  string
		every time.Duration
		task  Task
	}
	wg      sync.WaitGroup
	started bool
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{gron: gronx.New()}
}

// Every registers a fixed-interval task.
func (s *Scheduler) Every(every time.Duration, name string, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = append(s.interval, struct {
		name  string
		every time.Duration
		task  Task
	}{name, every, task})
}

// Cron registers a task on a cron expression, evaluated once a minute.
// Invalid expressions are a programmer error and panic at registration.
func (s *Scheduler) Cron(expr, name string, task Task) {
	if !s.gron.IsValid(expr) {
		panic("scheduler: invalid cron expression for " + name + ": " + expr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cronJobs = append(s.cronJobs, cronJob{name: name, expr: expr, task: task})
}

// Start launches every registered loop. It returns immediately; Wait blocks
// until the context is cancelled and all loops have exited.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	for _, it := range s.interval {
		it := it
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.intervalLoop(ctx, it.name, it.every, it.task)
		}()
	}
	if len(s.cronJobs) > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.cronLoop(ctx)
		}()
	}
}

// Wait blocks until every loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) intervalLoop(ctx context.Context, name string, every time.Duration, task Task) {
	slog.Debug("periodic task started", "task", name, "every", every)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("periodic task stopped", "task", name)
			return
		case <-t.C:
			s.run(ctx, name, task)
		}
	}
}

func (s *Scheduler) cronLoop(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.mu.Lock()
			jobs := append([]cronJob(nil), s.cronJobs...)
			s.mu.Unlock()
			for _, job := range jobs {
				due, err := s.gron.IsDue(job.expr, now)
				if err != nil {
					slog.Error("cron expression check failed", "task", job.name, "error", err)
					continue
				}
				if due {
					s.run(ctx, job.name, job.task)
				}
			}
		}
	}
}

func (s *Scheduler) run(ctx context.Context, name string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("periodic task panicked", "task", name, "panic", r)
		}
	}()
	if err := task(ctx); err != nil {
		slog.Error("periodic task failed", "task", name, "error", err)
	}
}
