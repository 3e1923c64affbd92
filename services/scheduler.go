package services

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSchedulerClosed = errors.New("scheduler is closed")

// Scheduler decides when a queued completion task runs. A durable queue can
// replace the in-process timers by implementing this and calling
// CompletionJob.Run from its workers.
type Scheduler interface {
	Schedule(taskID uint, runAt time.Time) error
	Close()
}

// RunFunc executes one task.
type RunFunc func(ctx context.Context, taskID uint)

// TimerScheduler runs each task on its own timer inside this process.
// Pending timers are dropped on Close; their tasks stay queued in the database.
type TimerScheduler struct {
	run RunFunc

	mu     sync.Mutex
	timers map[uint]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

func NewTimerScheduler(run RunFunc) *TimerScheduler {
	return &TimerScheduler{
		run:    run,
		timers: make(map[uint]*time.Timer),
	}
}

func (s *TimerScheduler) Schedule(taskID uint, runAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	if _, exists := s.timers[taskID]; exists {
		return nil
	}

	s.wg.Add(1)
	s.timers[taskID] = time.AfterFunc(time.Until(runAt), func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.timers, taskID)
		s.mu.Unlock()
		s.run(context.Background(), taskID)
	})
	return nil
}

// Pending is the number of timers that have not fired yet.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops pending timers and waits for running tasks to return.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, timer := range s.timers {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
