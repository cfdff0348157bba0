package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/dharma-case-api/api"
	"github.com/linesmerrill/dharma-case-api/api/handlers"
	"github.com/linesmerrill/dharma-case-api/databases"
	"github.com/linesmerrill/dharma-case-api/identity"
	"github.com/linesmerrill/dharma-case-api/models"
)

const testSecret = "handlers-test-secret"

var (
	police = models.CaseParticipant{ID: "police-123", Name: "Police User", Role: models.RolePolice}
	lawyer = models.CaseParticipant{ID: "lawyer-123", Name: "Lawyer User", Role: models.RoleLawyer}
	judge  = models.CaseParticipant{ID: "judge-123", Name: "Judge User", Role: models.RoleJudge}
	admin  = models.CaseParticipant{ID: "admin-123", Name: "Admin User", Role: models.RoleAdmin}
	public = models.CaseParticipant{ID: "public-123", Name: "Public User", Role: models.RolePublic}
)

// newTestApp wires an App over an in-memory store holding the demo cases
func newTestApp(t *testing.T) *handlers.App {
	t.Helper()
	seed, err := databases.LoadSeedCases()
	require.NoError(t, err)
	dir, err := identity.DemoDirectory()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := &handlers.App{}
	a.Wire(databases.NewMemoryCaseDatabase(seed...), api.NewAuth(ctx, dir, identity.NewIssuer(testSecret)))
	return a
}

func tokenFor(t *testing.T, p models.CaseParticipant) string {
	t.Helper()
	token, err := identity.NewIssuer(testSecret).Issue(p)
	require.NoError(t, err)
	return token
}

func executeRequest(a *handlers.App, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func authedRequest(t *testing.T, method, url, body string, as models.CaseParticipant) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, as))
	return req
}
