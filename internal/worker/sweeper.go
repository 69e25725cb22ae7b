package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-health/heron/internal/tracker"
)

// Sweeper periodically marks overdue doses as missed.
type Sweeper struct {
	tracker  *tracker.Service
	interval time.Duration
	grace    time.Duration

	mu      sync.Mutex
	runs    int
	marked  int
	lastRun time.Time
	lastErr error

	stop chan struct{}
	done chan struct{}
}

// NewSweeper creates a sweeper. Zero durations fall back to a 15 minute
// interval and a 2 hour grace period.
func NewSweeper(trackerSvc *tracker.Service, interval, grace time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if grace <= 0 {
		grace = 2 * time.Hour
	}
	return &Sweeper{
		tracker:  trackerSvc,
		interval: interval,
		grace:    grace,
	}
}

// Start runs a sweep immediately and then every interval until Stop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Sweep(context.Background())
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Sweep(context.Background())
			}
		}
	}()

	slog.Info("dose sweeper started", "interval", s.interval.String(), "grace", s.grace.String())
}

// Sweep runs one pass and returns the users whose doses were marked.
func (s *Sweeper) Sweep(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	users, err := s.tracker.MarkMissedDoses(ctx, s.grace)

	s.mu.Lock()
	s.runs++
	s.lastRun = time.Now()
	s.lastErr = err
	s.marked += len(users)
	s.mu.Unlock()

	if err != nil {
		slog.Error("dose sweep failed", "error", err)
		return nil
	}
	if len(users) > 0 {
		slog.Info("missed doses marked", "user_count", len(users))
	}
	return users
}

// Stop halts the sweep loop and waits for an in-flight pass.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	slog.Info("dose sweeper stopped")
}

// SweepStats summarises sweeper activity.
type SweepStats struct {
	Runs        int       `json:"runs"`
	UsersMarked int       `json:"usersMarked"`
	LastRun     time.Time `json:"lastRun"`
	LastError   string    `json:"lastError,omitempty"`
}

// GetStats returns sweeper statistics.
func (s *Sweeper) GetStats() SweepStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := SweepStats{Runs: s.runs, UsersMarked: s.marked, LastRun: s.lastRun}
	if s.lastErr != nil {
		stats.LastError = s.lastErr.Error()
	}
	return stats
}
