// Package scheduler runs named jobs until their context is canceled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// MinInterval keeps repeated batches from hammering the mirrors
	MinInterval = 30 * time.Second
	MaxInterval = 24 * time.Hour
)

// ValidateInterval checks an operator-supplied batch interval
func ValidateInterval(interval time.Duration) error {
	if interval < MinInterval || interval > MaxInterval {
		return fmt.Errorf("interval must be between %v and %v", MinInterval, MaxInterval)
	}
	return nil
}

// Job is a long-running unit of work
type Job interface {
	// Name returns the unique identifier for this job
	Name() string
	// Execute runs the job until ctx is canceled or Stop is called
	Execute(ctx context.Context) error
	// Stop cleanly stops the job
	Stop()
}

type Scheduler struct {
	logger *logrus.Logger
	jobs   map[string]Job
	mu     sync.RWMutex
}

func New(logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		logger: logger,
		jobs:   make(map[string]Job),
	}
}

// Register adds a job to the scheduler
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	s.jobs[name] = job
	return nil
}

// Jobs returns the registered job names in order
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run starts every registered job and blocks until ctx is canceled, a job fails,
// or all jobs return
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.RLock()
	jobs := make(map[string]Job, len(s.jobs))
	for name, job := range s.jobs {
		jobs[name] = job
	}
	s.mu.RUnlock()

	s.logger.WithField("jobs", len(jobs)).Info("Starting scheduler")

	errChan := make(chan error, len(jobs))
	var wg sync.WaitGroup
	for name, job := range jobs {
		wg.Add(1)
		go func(name string, job Job) {
			defer wg.Done()
			s.logger.WithField("job", name).Info("Starting job")
			if err := job.Execute(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.WithError(err).WithField("job", name).Error("Job failed")
				errChan <- fmt.Errorf("job %s failed: %w", name, err)
			}
		}(name, job)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Context canceled, stopping all jobs")
		s.stopAll(jobs)
		<-done
		return ctx.Err()
	case err := <-errChan:
		s.stopAll(jobs)
		<-done
		return err
	case <-done:
		select {
		case err := <-errChan:
			return err
		default:
		}
		s.logger.Info("All jobs completed")
		return nil
	}
}

func (s *Scheduler) stopAll(jobs map[string]Job) {
	for name, job := range jobs {
		s.logger.WithField("job", name).Debug("Stopping job")
		job.Stop()
	}
}
