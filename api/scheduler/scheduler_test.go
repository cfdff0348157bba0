package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/linesmerrill/dharma-case-api/cases"
	"github.com/linesmerrill/dharma-case-api/databases"
	"github.com/linesmerrill/dharma-case-api/models"
)

type sentMail struct {
	to, subject, html, text string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, toEmail, _, subject, htmlContent, plainText string) error {
	f.sent = append(f.sent, sentMail{toEmail, subject, htmlContent, plainText})
	return f.err
}

type listerFunc func(ctx context.Context, filter databases.CaseFilter) ([]models.CaseFile, error)

func (f listerFunc) ListCases(ctx context.Context, filter databases.CaseFilter) ([]models.CaseFile, error) {
	return f(ctx, filter)
}

func hearingCase(id, hearing string, status models.CaseStatus) models.CaseFile {
	return models.CaseFile{ID: id, Title: "Case " + id, Status: status, NextHearing: models.StringPtr(hearing)}
}

func newTestScheduler(mailer Mailer, seed ...models.CaseFile) *Scheduler {
	s := NewScheduler(cases.NewManager(databases.NewMemoryCaseDatabase(seed...)), mailer, "registry@dharma.com", "0 7 * * *")
	s.now = func() time.Time { return time.Date(2023, 5, 29, 7, 0, 0, 0, time.UTC) }
	return s
}

func TestSendHearingRemindersTomorrowOnly(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestScheduler(mailer,
		hearingCase("C-1", "2023-05-30", models.StatusInProgress),
		hearingCase("C-2", "2023-05-31", models.StatusAssigned),
		hearingCase("C-3", "2023-05-30", models.StatusClosed),
		models.CaseFile{ID: "C-4", Status: models.StatusFiled},
		hearingCase("C-5", "2023-05-30", models.StatusPendingJudgment),
	)

	sent, err := s.SendHearingReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "registry@dharma.com", mailer.sent[0].to)
	assert.Equal(t, "2 hearings scheduled for 2023-05-30", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].text, "C-1: Case C-1 (in_progress)")
	assert.Contains(t, mailer.sent[0].text, "C-5: Case C-5 (pending_judgment)")
	assert.NotContains(t, mailer.sent[0].text, "C-2")
	assert.NotContains(t, mailer.sent[0].text, "C-3")
}

func TestSendHearingRemindersNothingDue(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestScheduler(mailer, hearingCase("C-2", "2023-06-15", models.StatusAssigned))

	sent, err := s.SendHearingReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, mailer.sent)
}

func TestSendHearingRemindersErrors(t *testing.T) {
	s := newTestScheduler(&fakeMailer{err: errors.New("mocked-error")}, hearingCase("C-1", "2023-05-30", models.StatusFiled))
	_, err := s.SendHearingReminders(context.Background())
	assert.EqualError(t, err, "send hearing reminder: mocked-error")

	s.Cases = listerFunc(func(context.Context, databases.CaseFilter) ([]models.CaseFile, error) {
		return nil, errors.New("mocked-error")
	})
	_, err = s.SendHearingReminders(context.Background())
	assert.EqualError(t, err, "list cases: mocked-error")
}

func TestRunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestScheduler(&fakeMailer{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(cases.NewManager(databases.NewMemoryCaseDatabase()), &fakeMailer{}, "registry@dharma.com", "not a spec")
	assert.Error(t, s.Start())
}
