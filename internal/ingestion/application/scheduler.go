package application

import (
	"context"
	"errors"
	"log"

	"github.com/robfig/cron/v3"

	ingestion "energy-square/internal/ingestion/domain"
)

// Scheduler triggers ingestion runs on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	spec   string
	logger *log.Logger
}

// NewScheduler constructs a scheduler. spec accepts standard five-field
// expressions and descriptors such as @hourly.
func NewScheduler(runner *Runner, spec string, logger *log.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("ingestion scheduler: nil runner")
	}
	if spec == "" {
		return nil, errors.New("ingestion scheduler: empty schedule")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		spec:   spec,
		logger: logger,
	}, nil
}

// Start schedules runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("ingestion scheduler: nil")
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.runner.Run(ctx); err != nil {
			if errors.Is(err, ingestion.ErrRunInProgress) {
				s.logger.Printf("ingestion scheduler: previous run still active, skipping")
				return
			}
			s.logger.Printf("ingestion scheduler: run error: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Printf("ingestion scheduler: started schedule=%q", s.spec)

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Printf("ingestion scheduler: stopped")
	}()
	return nil
}
