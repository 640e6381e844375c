// Package settlement drives periodic settlement of pending transactions
// against the results feed.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/wager-engine/internal/feed"
	"github.com/yourusername/wager-engine/internal/ledger"
	"github.com/yourusername/wager-engine/internal/models"
)

// Scheduler polls the results feed for every contest with pending
// transactions and settles whatever became final. A contest with partial or
// missing results simply stays pending for the next pass, so the poll is safe
// to run as often as the feed allows.
type Scheduler struct {
	cron    *cron.Cron
	ledger  *ledger.Ledger
	results feed.ResultsSource
	logger  *logrus.Logger

	mu        sync.RWMutex
	isRunning bool
	jobIDs    []cron.EntryID
}

// NewScheduler creates a settlement scheduler
func NewScheduler(lg *ledger.Ledger, results feed.ResultsSource, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		ledger:  lg,
		results: results,
		logger:  logger,
		jobIDs:  make([]cron.EntryID, 0),
	}
}

// Schedule registers the settlement pass on the given cron expression
func (s *Scheduler) Schedule(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := s.RunPass(ctx); err != nil {
			s.logger.Errorf("Settlement pass failed: %v", err)
		}
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", cronExpression).Info("Scheduled settlement polling")

	return nil
}

// RunPass settles every contest with pending transactions whose results are
// available. Feed errors for one contest do not stop the others.
func (s *Scheduler) RunPass(ctx context.Context) error {
	contests, err := s.ledger.PendingContests(ctx)
	if err != nil {
		return fmt.Errorf("listing pending contests: %w", err)
	}

	var firstErr error
	for _, contestID := range contests {
		if err := s.SettleContest(ctx, contestID); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SettleContest fetches results for one contest and settles against them.
// Missing results are not an error; the contest just is not final yet.
func (s *Scheduler) SettleContest(ctx context.Context, contestID string) error {
	results, err := s.results.Results(ctx, contestID)
	if errors.Is(err, feed.ErrResultsNotFinal) || errors.Is(err, models.ErrNotFound) {
		s.logger.WithField("contest_id", contestID).Debug("Results not available yet")
		return nil
	}
	if err != nil {
		s.logger.WithField("contest_id", contestID).Warnf("Results fetch failed: %v", err)
		return err
	}

	settled, err := s.ledger.Settle(ctx, contestID, results)
	if err != nil {
		return fmt.Errorf("settling contest %s: %w", contestID, err)
	}
	if settled > 0 {
		s.logger.WithFields(logrus.Fields{
			"contest_id": contestID,
			"settled":    settled,
		}).Info("Settled transactions")
	}
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Settlement scheduler started")

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Settlement scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled pass
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}
	return nextRun
}
