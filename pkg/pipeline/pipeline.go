// Package pipeline runs the long-lived loops of the ingestion process under
// one context.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is a long-lived loop
type Task interface {
	// Name returns the unique identifier for this task
	Name() string
	// Run blocks until the task finishes or ctx is cancelled
	Run(ctx context.Context) error
	// Stop cleanly stops the task
	Stop()
}

// Runner owns the registered tasks
type Runner struct {
	logger *logrus.Logger
	tasks  map[string]Task
	order  []string
	mu     sync.RWMutex
}

// New creates a Runner
func New(logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{
		logger: logger,
		tasks:  make(map[string]Task),
	}
}

// Register adds a task
func (r *Runner) Register(tasks ...Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, task := range tasks {
		name := task.Name()
		if _, exists := r.tasks[name]; exists {
			return fmt.Errorf("task %s already registered", name)
		}
		r.tasks[name] = task
		r.order = append(r.order, name)
	}
	return nil
}

// Names lists the registered tasks in registration order
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Run starts every task in its own goroutine. It returns when ctx is
// cancelled or a task fails, after stopping all tasks and waiting for them.
// A task that returns nil simply leaves the pipeline.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.RLock()
	tasks := make([]Task, 0, len(r.order))
	for _, name := range r.order {
		tasks = append(tasks, r.tasks[name])
	}
	r.mu.RUnlock()

	r.logger.WithField("tasks", len(tasks)).Info("Starting pipeline")

	errChan := make(chan error, len(tasks))
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()

			log := r.logger.WithField("task", task.Name())
			log.Info("Starting task")
			if err := task.Run(ctx); err != nil {
				log.WithError(err).Error("Task failed")
				errChan <- fmt.Errorf("task %s failed: %w", task.Name(), err)
				return
			}
			log.Info("Task finished")
		}(task)
	}

	var result error
	select {
	case <-ctx.Done():
		r.logger.Info("Context cancelled, stopping all tasks")
		result = ctx.Err()
	case err := <-errChan:
		result = err
	}

	r.stopAll(tasks)
	wg.Wait()
	return result
}

func (r *Runner) stopAll(tasks []Task) {
	for _, task := range tasks {
		r.logger.WithField("task", task.Name()).Info("Stopping task")
		task.Stop()
	}
}
