package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// JobLimiterConfig defines concurrency limits for background sync work
type JobLimiterConfig struct {
	MaxConcurrentJobs int           // Max concurrent jobs across all suppliers
	MaxPerSupplier    int           // Max concurrent jobs per supplier
	MaxImportWorkers  int           // Parallel supplier calls inside one job
	QueueTimeout      time.Duration // Max time to wait for a slot
}

// DefaultJobLimiterConfig returns production-ready defaults
func DefaultJobLimiterConfig() *JobLimiterConfig {
	return &JobLimiterConfig{
		MaxConcurrentJobs: 4,
		MaxPerSupplier:    2,
		MaxImportWorkers:  4,
		QueueTimeout:      time.Minute,
	}
}

// JobLimiter bounds how many sync jobs run at once, globally and per supplier
type JobLimiter struct {
	mu           sync.Mutex
	global       chan struct{}
	supplierSems map[string]chan struct{}
	active       map[string]int
	config       *JobLimiterConfig
}

// NewJobLimiter creates a new limiter
func NewJobLimiter(config *JobLimiterConfig) *JobLimiter {
	if config == nil {
		config = DefaultJobLimiterConfig()
	}
	return &JobLimiter{
		global:       make(chan struct{}, config.MaxConcurrentJobs),
		supplierSems: make(map[string]chan struct{}),
		active:       make(map[string]int),
		config:       config,
	}
}

func (l *JobLimiter) supplierSem(supplierID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sem, ok := l.supplierSems[supplierID]; ok {
		return sem
	}
	sem := make(chan struct{}, l.config.MaxPerSupplier)
	l.supplierSems[supplierID] = sem
	return sem
}

// Acquire waits for a global and a supplier slot. The returned release
// function must be called when the job finishes.
func (l *JobLimiter) Acquire(ctx context.Context, supplierID string) (func(), error) {
	queueCtx, cancel := context.WithTimeout(ctx, l.config.QueueTimeout)
	defer cancel()

	select {
	case l.global <- struct{}{}:
	case <-queueCtx.Done():
		return nil, fmt.Errorf("%w: timed out waiting for a job slot", ErrTooManyJobs)
	}

	sem := l.supplierSem(supplierID)
	select {
	case sem <- struct{}{}:
	case <-queueCtx.Done():
		<-l.global
		return nil, fmt.Errorf("%w: timed out waiting for supplier %s", ErrTooManyJobs, supplierID)
	}

	l.mu.Lock()
	l.active[supplierID]++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.active[supplierID]--
			l.mu.Unlock()
			<-sem
			<-l.global
		})
	}, nil
}

// CanAccept reports whether a job for supplierID would get a slot now
func (l *JobLimiter) CanAccept(supplierID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.global) < cap(l.global) && l.active[supplierID] < l.config.MaxPerSupplier
}

// ActiveJobs returns the number of running jobs for a supplier
func (l *JobLimiter) ActiveJobs(supplierID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[supplierID]
}

// Workers is the per-job fan-out for supplier calls
func (l *JobLimiter) Workers() int {
	if l.config.MaxImportWorkers < 1 {
		return 1
	}
	return l.config.MaxImportWorkers
}

// Stats returns limiter statistics for the admin API
func (l *JobLimiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	bySupplier := make(map[string]int, len(l.active))
	for k, v := range l.active {
		if v > 0 {
			bySupplier[k] = v
		}
	}
	return map[string]interface{}{
		"maxConcurrentJobs":    l.config.MaxConcurrentJobs,
		"maxPerSupplier":       l.config.MaxPerSupplier,
		"runningJobs":          len(l.global),
		"activeJobsBySupplier": bySupplier,
	}
}
