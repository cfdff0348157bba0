// Package cases is the single authority for reading and mutating case files.
// Every mutation appends exactly one history entry and may advance the case
// status.
package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/dharma-case-api/databases"
	"github.com/linesmerrill/dharma-case-api/logging"
	"github.com/linesmerrill/dharma-case-api/models"
)

const (
	dateLayout = "2006-01-02"
	// attempts made when the stored case changes between read and write
	maxAttempts = 3
)

// Manager reads and mutates cases held in a CaseDatabase
type Manager struct {
	db        databases.CaseDatabase
	now       func() time.Time
	newID     func(time.Time) string
	listeners []Listener
	locks     *keyedMutex
	log       *zap.SugaredLogger
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the time source used for history and filing dates
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithListener registers l to be told about committed mutations
func WithListener(l Listener) Option {
	return func(m *Manager) { m.listeners = append(m.listeners, l) }
}

// WithLogger overrides the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = l }
}

// WithIDGenerator overrides how new case ids are allocated
func WithIDGenerator(fn func(time.Time) string) Option {
	return func(m *Manager) { m.newID = fn }
}

// NewManager returns a Manager backed by db
func NewManager(db databases.CaseDatabase, opts ...Option) *Manager {
	m := &Manager{
		db:    db,
		now:   time.Now,
		newID: newCaseID,
		locks: newKeyedMutex(),
		log:   logging.New("cases"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func newCaseID(now time.Time) string {
	return fmt.Sprintf("CASE-%d-%s", now.Year(), strings.ToUpper(uuid.NewString()[:8]))
}

// GetCases returns every case. The role is accepted for callers that pass the
// portal they render but does not narrow the result.
func (m *Manager) GetCases(ctx context.Context, role models.Role) ([]models.CaseFile, error) {
	m.log.Debugw("listing cases", "role", role)
	return m.ListCases(ctx, databases.CaseFilter{})
}

// ListCases returns the cases matching filter
func (m *Manager) ListCases(ctx context.Context, filter databases.CaseFilter) ([]models.CaseFile, error) {
	cases, err := m.db.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// GetCaseByID returns the case with the given id or ErrNotFound
func (m *Manager) GetCaseByID(ctx context.Context, id string) (*models.CaseFile, error) {
	c, err := m.db.FindOne(ctx, id)
	if errors.Is(err, databases.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", id, err)
	}
	return c, nil
}

// FileCase creates a case on behalf of a police actor. The case starts as
// filed when a police report is supplied and as a draft otherwise.
func (m *Manager) FileCase(ctx context.Context, in models.NewCase, actor models.CaseParticipant) (*models.CaseFile, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RolePolice {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrInvalidCase
	}

	now := m.now().UTC()
	status := models.StatusDraft
	if in.PoliceReport != nil && strings.TrimSpace(*in.PoliceReport) != "" {
		status = models.StatusFiled
	}
	c := models.CaseFile{
		ID:           m.newID(now),
		Title:        in.Title,
		Description:  in.Description,
		FilingDate:   now.Format(dateLayout),
		Status:       status,
		Court:        in.Court,
		NextHearing:  in.NextHearing,
		PoliceReport: in.PoliceReport,
		AssignedTo:   []models.CaseParticipant{actor},
		CreatedBy:    actor,
		History: []models.HistoryEntry{{
			Date:   now.Format(dateLayout),
			Action: "Case filed",
			User:   actor,
		}},
		Documents: []models.CaseDocument{},
	}
	c = c.Clone()
	if err := m.db.InsertOne(ctx, c); err != nil {
		return nil, fmt.Errorf("insert case %s: %w", c.ID, err)
	}

	m.log.Infow("case filed", "caseId", c.ID, "status", c.Status, "actor", actor.ID)
	m.notify(ctx, Event{Kind: EventFiled, Case: c, Actor: actor, From: c.Status, To: c.Status})
	return &c, nil
}

// UpdateCase merges update into the case, appends a history entry naming the
// updated fields and applies the status advance rules.
func (m *Manager) UpdateCase(ctx context.Context, id string, update models.CaseUpdate, actor models.CaseParticipant) (*models.CaseFile, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, ErrEmptyUpdate
	}
	if err := checkOwnership(update, actor); err != nil {
		return nil, err
	}

	return m.mutate(ctx, id, EventUpdated, actor, func(c *models.CaseFile) error {
		next, err := resolveStatus(c.Status, update.Status, advanceOnUpdate(c.Status, update))
		if err != nil {
			return err
		}
		update.ApplyTo(c)
		c.Status = next
		c.History = append(c.History, models.HistoryEntry{
			Date:   m.today(),
			Action: fmt.Sprintf("Case updated by %s", actor.Role),
			User:   actor,
			Notes:  fmt.Sprintf("Updated case fields: %s", strings.Join(update.FieldNames(), ", ")),
		})
		return nil
	})
}

// AssignCase adds participant to the case unless a participant with the same
// id is already assigned. The history entry is appended either way.
func (m *Manager) AssignCase(ctx context.Context, id string, participant models.CaseParticipant, actor models.CaseParticipant) (*models.CaseFile, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if participant.ID == "" || !participant.Role.Valid() {
		return nil, ErrInvalidParticipant
	}

	return m.mutate(ctx, id, EventAssigned, actor, func(c *models.CaseFile) error {
		if !c.IsAssigned(participant.ID) {
			c.AssignedTo = append(c.AssignedTo, participant)
		}
		c.History = append(c.History, models.HistoryEntry{
			Date:   m.today(),
			Action: fmt.Sprintf("Assigned to %s", participant.Name),
			User:   actor,
		})
		c.Status = advanceOnAssign(c.Status, participant.Role)
		return nil
	})
}

// AddDocument attaches document metadata to the case under the next free
// sequence id.
func (m *Manager) AddDocument(ctx context.Context, id string, doc models.NewDocument, actor models.CaseParticipant) (*models.CaseFile, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}

	return m.mutate(ctx, id, EventDocumentAdded, actor, func(c *models.CaseFile) error {
		uploadedBy := actor
		if doc.UploadedBy != nil {
			uploadedBy = *doc.UploadedBy
		}
		uploadedOn := doc.UploadedOn
		if uploadedOn == "" {
			uploadedOn = m.today()
		}
		c.Documents = append(c.Documents, models.CaseDocument{
			ID:         nextDocumentID(c.Documents),
			Title:      doc.Title,
			Type:       doc.Type,
			UploadedBy: uploadedBy,
			UploadedOn: uploadedOn,
			URL:        doc.URL,
		})
		c.History = append(c.History, models.HistoryEntry{
			Date:   m.today(),
			Action: fmt.Sprintf("Document added: %s", doc.Title),
			User:   actor,
		})
		return nil
	})
}

// CloseCase moves a case to its terminal stage. Only judges and admins close
// cases.
func (m *Manager) CloseCase(ctx context.Context, id string, notes string, actor models.CaseParticipant) (*models.CaseFile, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if !canSetStatus[actor.Role] {
		return nil, ErrForbidden
	}

	return m.mutate(ctx, id, EventClosed, actor, func(c *models.CaseFile) error {
		if c.Status == models.StatusClosed {
			return ErrStatusRegression
		}
		c.Status = models.StatusClosed
		c.History = append(c.History, models.HistoryEntry{
			Date:   m.today(),
			Action: "Case closed",
			User:   actor,
			Notes:  notes,
		})
		return nil
	})
}

// mutate runs apply against a fresh copy of the case and stores the result.
// Mutations on one id are serialised in process; a version conflict from
// another writer re-reads the case and applies again.
func (m *Manager) mutate(ctx context.Context, id string, kind EventKind, actor models.CaseParticipant, apply func(c *models.CaseFile) error) (*models.CaseFile, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	for attempt := 1; ; attempt++ {
		current, err := m.GetCaseByID(ctx, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := apply(&next); err != nil {
			return nil, err
		}

		err = m.db.ReplaceOne(ctx, &next, current.Version)
		if errors.Is(err, databases.ErrVersionConflict) && attempt < maxAttempts {
			m.log.Warnw("case changed while mutating, retrying", "caseId", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store case %s: %w", id, err)
		}

		m.log.Infow("case mutated",
			"caseId", id,
			"kind", kind,
			"actor", actor.ID,
			"from", current.Status,
			"to", next.Status,
		)
		m.notify(ctx, Event{Kind: kind, Case: next.Clone(), Actor: actor, From: current.Status, To: next.Status})
		return &next, nil
	}
}

func (m *Manager) notify(ctx context.Context, event Event) {
	for _, l := range m.listeners {
		l.CaseChanged(ctx, event)
	}
}

func (m *Manager) today() string {
	return m.now().UTC().Format(dateLayout)
}

// checkActor rejects actors without an identity and the read-only public role
func checkActor(actor models.CaseParticipant) error {
	if actor.ID == "" || !actor.Role.Valid() {
		return ErrInvalidParticipant
	}
	if actor.Role == models.RolePublic {
		return ErrForbidden
	}
	return nil
}

// nextDocumentID numbers documents from the current count, skipping ids that
// are already taken on the case.
func nextDocumentID(docs []models.CaseDocument) string {
	taken := make(map[string]bool, len(docs))
	for _, d := range docs {
		taken[d.ID] = true
	}
	for seq := len(docs) + 1; ; seq++ {
		id := fmt.Sprintf("DOC-%03d", seq)
		if !taken[id] {
			return id
		}
	}
}
