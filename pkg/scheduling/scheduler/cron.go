package scheduler

import (
	"fmt"
	"time"
)

// CronEntry describes a cron-scheduled entry.
type CronEntry struct {
	ID      string
	Expr    string
	NextRun time.Time
	Created time.Time
}

// CronScheduler extends Scheduler with cron entry management. The
// scheduler returned by New and NewWithConfig implements it.
type CronScheduler interface {
	Scheduler

	// UpdateCron replaces the expression of an existing cron entry.
	UpdateCron(id string, newCronExpr string) error

	// CronNext returns the next trigger time of a cron entry.
	CronNext(id string) (time.Time, error)

	// ListCron returns all cron entries, soonest first.
	ListCron() []CronEntry

	// ValidateCron checks an expression without scheduling anything.
	ValidateCron(cronExpr string) error
}

func (s *scheduler) UpdateCron(id string, newCronExpr string) error {
	schedule, err := s.cronParser.Parse(newCronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[id]
	if !exists {
		return fmt.Errorf("no entry with ID %q", id)
	}
	if e.cronSchedule == nil {
		return fmt.Errorf("entry %q is not a cron entry", id)
	}

	e.cronExpr = newCronExpr
	e.cronSchedule = schedule
	e.runAt = schedule.Next(time.Now().In(s.config.Location))
	return nil
}

func (s *scheduler) CronNext(id string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[id]
	if !exists {
		return time.Time{}, fmt.Errorf("no entry with ID %q", id)
	}
	if e.cronSchedule == nil {
		return time.Time{}, fmt.Errorf("entry %q is not a cron entry", id)
	}
	return e.runAt, nil
}

func (s *scheduler) ListCron() []CronEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]CronEntry, 0)
	for _, e := range s.entries {
		if e.cronSchedule == nil {
			continue
		}
		entries = append(entries, CronEntry{
			ID:      e.id,
			Expr:    e.cronExpr,
			NextRun: e.runAt,
			Created: e.created,
		})
	}
	return entries
}

func (s *scheduler) ValidateCron(cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	if _, err := s.cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
