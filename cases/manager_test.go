package cases_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/dharma-case-api/cases"
	"github.com/linesmerrill/dharma-case-api/databases"
	"github.com/linesmerrill/dharma-case-api/databases/mocks"
	"github.com/linesmerrill/dharma-case-api/models"
)

var (
	policeActor = models.CaseParticipant{ID: "police-123", Name: "Officer Singh", Role: models.RolePolice}
	lawyerActor = models.CaseParticipant{ID: "lawyer-456", Name: "Adv. Sharma", Role: models.RoleLawyer}
	judgeActor  = models.CaseParticipant{ID: "judge-789", Name: "Hon. Justice Patel", Role: models.RoleJudge}
	adminActor  = models.CaseParticipant{ID: "admin-001", Name: "System Admin", Role: models.RoleAdmin}
	publicActor = models.CaseParticipant{ID: "public-123", Name: "Public User", Role: models.RolePublic}

	fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
)

func newManager(t *testing.T, seed ...models.CaseFile) (*cases.Manager, *databases.MemoryCaseDatabase) {
	t.Helper()
	db := databases.NewMemoryCaseDatabase(seed...)
	m := cases.NewManager(db,
		cases.WithClock(func() time.Time { return fixedNow }),
		cases.WithIDGenerator(func(time.Time) string { return "CASE-2024-NEW" }),
	)
	return m, db
}

func caseWithStatus(id string, status models.CaseStatus) models.CaseFile {
	return models.CaseFile{
		ID:         id,
		Title:      "Theft at Mall Road",
		FilingDate: "2023-04-16",
		Status:     status,
		CreatedBy:  policeActor,
		AssignedTo: []models.CaseParticipant{policeActor},
		History:    []models.HistoryEntry{{Date: "2023-04-16", Action: "Case filed", User: policeActor}},
		Documents:  []models.CaseDocument{},
	}
}

func snapshot(t *testing.T, db databases.CaseDatabase) []models.CaseFile {
	t.Helper()
	all, err := db.Find(context.Background(), databases.CaseFilter{})
	require.NoError(t, err)
	return all
}

func TestGetCaseByIDMissing(t *testing.T) {
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusDraft))

	c, err := m.GetCaseByID(context.Background(), "NONEXISTENT")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, cases.ErrNotFound)
}

func TestMutationsOnMissingCaseLeaveStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	m, db := newManager(t, caseWithStatus("C-1", models.StatusDraft))
	before := snapshot(t, db)

	c, err := m.UpdateCase(ctx, "NONEXISTENT", models.CaseUpdate{PoliceReport: models.StringPtr("text")}, policeActor)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, cases.ErrNotFound)

	c, err = m.AssignCase(ctx, "NONEXISTENT", lawyerActor, adminActor)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, cases.ErrNotFound)

	c, err = m.AddDocument(ctx, "NONEXISTENT", models.NewDocument{Title: "Report"}, policeActor)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, cases.ErrNotFound)

	c, err = m.CloseCase(ctx, "NONEXISTENT", "", adminActor)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, cases.ErrNotFound)

	if diff := cmp.Diff(before, snapshot(t, db)); diff != "" {
		t.Errorf("store changed on not-found mutations (-before +after):\n%s", diff)
	}
}

func TestGetCasesIgnoresRole(t *testing.T) {
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusDraft), caseWithStatus("C-2", models.StatusClosed))

	for _, role := range []models.Role{models.RolePolice, models.RolePublic, models.RoleAdmin, ""} {
		all, err := m.GetCases(context.Background(), role)
		require.NoError(t, err)
		assert.Len(t, all, 2, "role %q", role)
	}
}

func TestListCasesFilters(t *testing.T) {
	filed := caseWithStatus("C-2", models.StatusFiled)
	filed.AssignedTo = append(filed.AssignedTo, lawyerActor)
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusDraft), filed)

	got, err := m.ListCases(context.Background(), databases.CaseFilter{ParticipantID: lawyerActor.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "C-2", got[0].ID)
}

func TestUpdateCaseAppendsOneHistoryEntry(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusFiled))

	before, err := m.GetCaseByID(ctx, "C-1")
	require.NoError(t, err)

	updated, err := m.UpdateCase(ctx, "C-1", models.CaseUpdate{
		Court:       models.StringPtr("District Court, Delhi"),
		NextHearing: models.StringPtr("2024-04-01"),
	}, adminActor)
	require.NoError(t, err)

	require.Len(t, updated.History, len(before.History)+1)
	last := updated.History[len(updated.History)-1]
	assert.Equal(t, models.HistoryEntry{
		Date:   "2024-03-15",
		Action: "Case updated by admin",
		User:   adminActor,
		Notes:  "Updated case fields: court, nextHearing",
	}, last)
	assert.Equal(t, before.History, updated.History[:len(before.History)])
	assert.Equal(t, "District Court, Delhi", *updated.Court)
	assert.Equal(t, models.StatusFiled, updated.Status)

	stored, err := m.GetCaseByID(ctx, "C-1")
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestUpdateCasePoliceReportFilesDraft(t *testing.T) {
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusDraft))

	c, err := m.UpdateCase(context.Background(), "C-1", models.CaseUpdate{PoliceReport: models.StringPtr("text")}, policeActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFiled, c.Status)
	assert.Equal(t, "text", *c.PoliceReport)
}

func TestUpdateCaseLawyerBriefMovesAssignedToInProgress(t *testing.T) {
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusAssigned))

	c, err := m.UpdateCase(context.Background(), "C-1", models.CaseUpdate{LawyerBrief: models.StringPtr("brief text")}, lawyerActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	assert.Equal(t, "brief text", *c.LawyerBrief)
	assert.Equal(t, "Case updated by lawyer", c.History[len(c.History)-1].Action)
}

func TestUpdateCaseStatusRules(t *testing.T) {
	tests := []struct {
		name   string
		from   models.CaseStatus
		update models.CaseUpdate
		actor  models.CaseParticipant
		want   models.CaseStatus
	}{
		{"brief on filed", models.StatusFiled, models.CaseUpdate{LawyerBrief: models.StringPtr("b")}, lawyerActor, models.StatusInProgress},
		{"brief on draft", models.StatusDraft, models.CaseUpdate{LawyerBrief: models.StringPtr("b")}, lawyerActor, models.StatusDraft},
		{"notes on in progress", models.StatusInProgress, models.CaseUpdate{JudgeNotes: models.StringPtr("n")}, judgeActor, models.StatusPendingJudgment},
		{"notes on assigned", models.StatusAssigned, models.CaseUpdate{JudgeNotes: models.StringPtr("n")}, judgeActor, models.StatusAssigned},
		{"report on filed", models.StatusFiled, models.CaseUpdate{PoliceReport: models.StringPtr("r")}, policeActor, models.StatusFiled},
		{"report on closed", models.StatusClosed, models.CaseUpdate{PoliceReport: models.StringPtr("r")}, policeActor, models.StatusClosed},
		{"explicit close", models.StatusPendingJudgment, models.CaseUpdate{Status: statusPtr(models.StatusClosed)}, judgeActor, models.StatusClosed},
		{"explicit same status", models.StatusFiled, models.CaseUpdate{Status: statusPtr(models.StatusFiled)}, adminActor, models.StatusFiled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newManager(t, caseWithStatus("C-1", tt.from))
			c, err := m.UpdateCase(context.Background(), "C-1", tt.update, tt.actor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Status)
		})
	}
}

func TestUpdateCaseRejections(t *testing.T) {
	tests := []struct {
		name   string
		update models.CaseUpdate
		actor  models.CaseParticipant
		want   error
	}{
		{"empty update", models.CaseUpdate{}, adminActor, cases.ErrEmptyUpdate},
		{"lawyer writes police report", models.CaseUpdate{PoliceReport: models.StringPtr("r")}, lawyerActor, cases.ErrFieldNotOwned},
		{"admin writes judge notes", models.CaseUpdate{JudgeNotes: models.StringPtr("n")}, adminActor, cases.ErrFieldNotOwned},
		{"police sets status", models.CaseUpdate{Status: statusPtr(models.StatusClosed)}, policeActor, cases.ErrForbidden},
		{"backwards status", models.CaseUpdate{Status: statusPtr(models.StatusDraft)}, adminActor, cases.ErrStatusRegression},
		{"unknown status", models.CaseUpdate{Status: statusPtr("archived")}, adminActor, cases.ErrInvalidStatus},
		{"public actor", models.CaseUpdate{Title: models.StringPtr("t")}, publicActor, cases.ErrForbidden},
		{"anonymous actor", models.CaseUpdate{Title: models.StringPtr("t")}, models.CaseParticipant{Role: models.RoleAdmin}, cases.ErrInvalidParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, db := newManager(t, caseWithStatus("C-1", models.StatusInProgress))
			before := snapshot(t, db)

			c, err := m.UpdateCase(context.Background(), "C-1", tt.update, tt.actor)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, snapshot(t, db))
		})
	}
}

func TestAssignCaseLawyerOnFiledCase(t *testing.T) {
	c := caseWithStatus("C-1", models.StatusFiled)
	c.AssignedTo = nil
	m, _ := newManager(t, c)

	got, err := m.AssignCase(context.Background(), "C-1", lawyerActor, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, got.Status)
	assert.Equal(t, []models.CaseParticipant{lawyerActor}, got.AssignedTo)

	last := got.History[len(got.History)-1]
	assert.Equal(t, "Assigned to Adv. Sharma", last.Action)
	assert.Equal(t, adminActor, last.User)
	assert.Empty(t, last.Notes)
}

func TestAssignCaseJudgeOnAssignedCase(t *testing.T) {
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusAssigned))

	got, err := m.AssignCase(context.Background(), "C-1", judgeActor, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingJudgment, got.Status)
}

func TestAssignCaseWithoutRuleKeepsStatus(t *testing.T) {
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusDraft))

	got, err := m.AssignCase(context.Background(), "C-1", lawyerActor, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, got.Status)
}

func TestAssignCaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusFiled))

	_, err := m.AssignCase(ctx, "C-1", lawyerActor, adminActor)
	require.NoError(t, err)
	got, err := m.AssignCase(ctx, "C-1", lawyerActor, adminActor)
	require.NoError(t, err)

	count := 0
	for _, p := range got.AssignedTo {
		if p.ID == lawyerActor.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, got.History, 3)
}

func TestAssignCaseRejectsInvalidParticipant(t *testing.T) {
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusFiled))

	_, err := m.AssignCase(context.Background(), "C-1", models.CaseParticipant{Name: "nobody"}, adminActor)
	assert.ErrorIs(t, err, cases.ErrInvalidParticipant)

	_, err = m.AssignCase(context.Background(), "C-1", lawyerActor, publicActor)
	assert.ErrorIs(t, err, cases.ErrForbidden)
}

func TestAddDocumentAllocatesIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusFiled))

	first, err := m.AddDocument(ctx, "C-1", models.NewDocument{Title: "Initial Police Report", Type: "pdf", URL: "#"}, policeActor)
	require.NoError(t, err)
	second, err := m.AddDocument(ctx, "C-1", models.NewDocument{Title: "CCTV Footage", Type: "video", URL: "#"}, policeActor)
	require.NoError(t, err)

	require.Len(t, second.Documents, 2)
	assert.Equal(t, "DOC-001", first.Documents[0].ID)
	assert.Equal(t, "DOC-002", second.Documents[1].ID)
	assert.Equal(t, models.CaseDocument{
		ID:         "DOC-002",
		Title:      "CCTV Footage",
		Type:       "video",
		UploadedBy: policeActor,
		UploadedOn: "2024-03-15",
		URL:        "#",
	}, second.Documents[1])
	assert.Equal(t, "Document added: CCTV Footage", second.History[len(second.History)-1].Action)
}

func TestAddDocumentSkipsTakenIDs(t *testing.T) {
	c := caseWithStatus("C-2", models.StatusAssigned)
	c.Documents = []models.CaseDocument{{ID: "DOC-003"}, {ID: "DOC-004"}}
	m, _ := newManager(t, c)

	got, err := m.AddDocument(context.Background(), "C-2", models.NewDocument{Title: "Witness Statement"}, lawyerActor)
	require.NoError(t, err)
	assert.Equal(t, "DOC-005", got.Documents[2].ID)
}

func TestAddDocumentKeepsSuppliedUploader(t *testing.T) {
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusFiled))

	got, err := m.AddDocument(context.Background(), "C-1", models.NewDocument{
		Title:      "Scan",
		UploadedBy: &policeActor,
		UploadedOn: "2023-04-16",
	}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, policeActor, got.Documents[0].UploadedBy)
	assert.Equal(t, "2023-04-16", got.Documents[0].UploadedOn)
	assert.Equal(t, adminActor, got.History[len(got.History)-1].User)
}

func TestFileCase(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	draft, err := m.FileCase(ctx, models.NewCase{Title: "Shop Burglary"}, policeActor)
	require.NoError(t, err)
	assert.Equal(t, "CASE-2024-NEW", draft.ID)
	assert.Equal(t, models.StatusDraft, draft.Status)
	assert.Equal(t, "2024-03-15", draft.FilingDate)
	assert.Equal(t, policeActor, draft.CreatedBy)
	assert.Equal(t, []models.HistoryEntry{{Date: "2024-03-15", Action: "Case filed", User: policeActor}}, draft.History)
	assert.NotNil(t, draft.Documents)

	stored, err := m.GetCaseByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, draft, stored)
}

func TestFileCaseWithReportIsFiled(t *testing.T) {
	db := databases.NewMemoryCaseDatabase()
	m := cases.NewManager(db, cases.WithClock(func() time.Time { return fixedNow }))

	c, err := m.FileCase(context.Background(), models.NewCase{
		Title:        "Vehicle Collision",
		PoliceReport: models.StringPtr("Two vehicles involved"),
	}, policeActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFiled, c.Status)
	assert.Regexp(t, `^CASE-2024-[0-9A-F]{8}$`, c.ID)
}

func TestFileCaseRejections(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.FileCase(context.Background(), models.NewCase{Title: "x"}, lawyerActor)
	assert.ErrorIs(t, err, cases.ErrForbidden)

	_, err = m.FileCase(context.Background(), models.NewCase{Title: "  "}, policeActor)
	assert.ErrorIs(t, err, cases.ErrInvalidCase)
}

func TestCloseCase(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusPendingJudgment))

	_, err := m.CloseCase(ctx, "C-1", "verdict delivered", lawyerActor)
	assert.ErrorIs(t, err, cases.ErrForbidden)

	c, err := m.CloseCase(ctx, "C-1", "verdict delivered", judgeActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, c.Status)
	assert.Equal(t, models.HistoryEntry{Date: "2024-03-15", Action: "Case closed", User: judgeActor, Notes: "verdict delivered"}, c.History[len(c.History)-1])

	_, err = m.CloseCase(ctx, "C-1", "again", adminActor)
	assert.ErrorIs(t, err, cases.ErrStatusRegression)
}

func TestFullLifecycleIsMonotonic(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	c, err := m.FileCase(ctx, models.NewCase{Title: "Domestic Dispute"}, policeActor)
	require.NoError(t, err)
	statuses := []models.CaseStatus{c.Status}

	steps := []func() (*models.CaseFile, error){
		func() (*models.CaseFile, error) {
			return m.UpdateCase(ctx, c.ID, models.CaseUpdate{PoliceReport: models.StringPtr("r")}, policeActor)
		},
		func() (*models.CaseFile, error) { return m.AssignCase(ctx, c.ID, lawyerActor, adminActor) },
		func() (*models.CaseFile, error) {
			return m.UpdateCase(ctx, c.ID, models.CaseUpdate{LawyerBrief: models.StringPtr("b")}, lawyerActor)
		},
		func() (*models.CaseFile, error) {
			return m.UpdateCase(ctx, c.ID, models.CaseUpdate{JudgeNotes: models.StringPtr("n")}, judgeActor)
		},
		func() (*models.CaseFile, error) { return m.CloseCase(ctx, c.ID, "", adminActor) },
	}
	for _, step := range steps {
		got, err := step()
		require.NoError(t, err)
		statuses = append(statuses, got.Status)
	}

	assert.Equal(t, []models.CaseStatus{
		models.StatusDraft,
		models.StatusFiled,
		models.StatusAssigned,
		models.StatusInProgress,
		models.StatusPendingJudgment,
		models.StatusClosed,
	}, statuses)

	final, err := m.GetCaseByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, final.History, 6)
}

func TestListenerReceivesCommittedEvents(t *testing.T) {
	var events []cases.Event
	db := databases.NewMemoryCaseDatabase(caseWithStatus("C-1", models.StatusFiled))
	m := cases.NewManager(db,
		cases.WithClock(func() time.Time { return fixedNow }),
		cases.WithListener(cases.ListenerFunc(func(_ context.Context, e cases.Event) {
			events = append(events, e)
		})),
	)

	_, err := m.AssignCase(context.Background(), "C-1", lawyerActor, adminActor)
	require.NoError(t, err)
	_, err = m.UpdateCase(context.Background(), "C-1", models.CaseUpdate{PoliceReport: models.StringPtr("r")}, lawyerActor)
	require.Error(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, cases.EventAssigned, events[0].Kind)
	assert.Equal(t, models.StatusFiled, events[0].From)
	assert.Equal(t, models.StatusAssigned, events[0].To)
	assert.True(t, events[0].StatusChanged())
	assert.Equal(t, adminActor, events[0].Actor)
}

func TestMutateRetriesOnVersionConflict(t *testing.T) {
	db := &mocks.CaseDatabase{}
	stored := caseWithStatus("C-1", models.StatusFiled)
	stored.Version = 7

	db.On("FindOne", mock.Anything, "C-1").Return(func(context.Context, string) *models.CaseFile {
		c := stored.Clone()
		return &c
	}, nil)
	db.On("ReplaceOne", mock.Anything, mock.Anything, int32(7)).Return(databases.ErrVersionConflict).Once()
	db.On("ReplaceOne", mock.Anything, mock.Anything, int32(7)).Return(nil).Once()

	m := cases.NewManager(db, cases.WithClock(func() time.Time { return fixedNow }))
	got, err := m.AssignCase(context.Background(), "C-1", lawyerActor, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, got.Status)
	assert.Len(t, got.History, 2)
	db.AssertNumberOfCalls(t, "ReplaceOne", 2)
}

func TestMutateGivesUpAfterRepeatedConflicts(t *testing.T) {
	db := &mocks.CaseDatabase{}
	stored := caseWithStatus("C-1", models.StatusFiled)

	db.On("FindOne", mock.Anything, "C-1").Return(func(context.Context, string) *models.CaseFile {
		c := stored.Clone()
		return &c
	}, nil)
	db.On("ReplaceOne", mock.Anything, mock.Anything, int32(0)).Return(databases.ErrVersionConflict)

	m := cases.NewManager(db)
	_, err := m.AssignCase(context.Background(), "C-1", lawyerActor, adminActor)
	assert.ErrorIs(t, err, cases.ErrVersionConflict)
	db.AssertNumberOfCalls(t, "ReplaceOne", 3)
}

func TestConcurrentAssignsAreSerialised(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, caseWithStatus("C-1", models.StatusFiled))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := models.CaseParticipant{ID: fmt.Sprintf("lawyer-%d", i%5), Name: "Counsel", Role: models.RoleLawyer}
			_, err := m.AssignCase(ctx, "C-1", p, adminActor)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := m.GetCaseByID(ctx, "C-1")
	require.NoError(t, err)
	assert.Len(t, got.AssignedTo, 1+5)
	assert.Len(t, got.History, 1+workers)
	assert.Equal(t, models.StatusAssigned, got.Status)
}

func statusPtr(s models.CaseStatus) *models.CaseStatus {
	return &s
}
