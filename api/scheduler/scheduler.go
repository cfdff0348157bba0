package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/dharma-case-api/databases"
	"github.com/linesmerrill/dharma-case-api/models"
	templates "github.com/linesmerrill/dharma-case-api/templates/html"
)

const dateLayout = "2006-01-02"

// CaseLister is the read side of the case manager the reminder job needs
type CaseLister interface {
	ListCases(ctx context.Context, filter databases.CaseFilter) ([]models.CaseFile, error)
}

// Scheduler handles periodic background jobs for hearing reminders
type Scheduler struct {
	cron   *cron.Cron
	Cases  CaseLister
	Mailer Mailer
	To     string
	Spec   string
	now    func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(lister CaseLister, mailer Mailer, to, spec string) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		Cases:  lister,
		Mailer: mailer,
		To:     to,
		Spec:   spec,
		now:    time.Now,
	}
}

// Start registers the jobs and begins the scheduler
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.Spec, s.sendHearingReminders)
	if err != nil {
		return fmt.Errorf("failed to register hearing reminder job: %w", err)
	}

	s.cron.Start()
	zap.S().Infow("Hearing reminder scheduler started", "spec", s.Spec)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Hearing reminder scheduler stopped")
}

// Run starts the scheduler and stops it once ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) sendHearingReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, err := s.SendHearingReminders(ctx)
	if err != nil {
		zap.S().Errorw("hearing reminder job failed", "error", err)
		return
	}
	zap.S().Infow("hearing reminder job finished", "hearings", sent)
}

// SendHearingReminders emails a digest of open cases with a hearing tomorrow
// and returns how many hearings it covered
func (s *Scheduler) SendHearingReminders(ctx context.Context) (int, error) {
	tomorrow := s.now().UTC().AddDate(0, 0, 1).Format(dateLayout)

	all, err := s.Cases.ListCases(ctx, databases.CaseFilter{})
	if err != nil {
		return 0, fmt.Errorf("list cases: %w", err)
	}

	var hearings []models.CaseFile
	for _, c := range all {
		if c.Status == models.StatusClosed || c.NextHearing == nil {
			continue
		}
		if *c.NextHearing == tomorrow {
			hearings = append(hearings, c)
		}
	}
	if len(hearings) == 0 {
		zap.S().Debugw("no hearings tomorrow", "date", tomorrow)
		return 0, nil
	}

	subject, htmlBody, plainText := templates.RenderHearingReminder(tomorrow, hearings)
	if err := s.Mailer.Send(ctx, s.To, "Dharma Court Registry", subject, htmlBody, plainText); err != nil {
		return 0, fmt.Errorf("send hearing reminder: %w", err)
	}
	return len(hearings), nil
}
