package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/dharma-case-api/api"
	"github.com/linesmerrill/dharma-case-api/assistant"
	"github.com/linesmerrill/dharma-case-api/cases"
	"github.com/linesmerrill/dharma-case-api/config"
	"github.com/linesmerrill/dharma-case-api/databases"
	"github.com/linesmerrill/dharma-case-api/models"
)

// Case exported for testing purposes
type Case struct {
	Manager   *cases.Manager
	Assistant *assistant.Service
}

type closeCaseRequest struct {
	Notes string `json:"notes"`
}

type chatRequest struct {
	Messages []assistant.Message `json:"messages"`
}

// CasesHandler returns every case, or the cases matching the status and
// participant query parameters
func (c Case) CasesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	q := r.URL.Query()
	var (
		dbResp []models.CaseFile
		err    error
	)
	if q.Get("status") == "" && q.Get("participant") == "" {
		dbResp, err = c.Manager.GetCases(ctx, models.Role(q.Get("role")))
	} else {
		status := models.CaseStatus(q.Get("status"))
		if status != "" && !status.Valid() {
			config.ErrorStatus("invalid status filter", http.StatusBadRequest, w, cases.ErrInvalidStatus)
			return
		}
		dbResp, err = c.Manager.ListCases(ctx, databases.CaseFilter{Status: status, ParticipantID: q.Get("participant")})
	}
	if err != nil {
		config.ErrorStatus("failed to get cases", http.StatusInternalServerError, w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbResp)
}

// CaseByIDHandler returns a single case
func (c Case) CaseByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.Manager.GetCaseByID(ctx, mux.Vars(r)["case_id"])
	if err != nil {
		caseError("failed to get case", w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbResp)
}

// CreateCaseHandler files a new case for the calling police officer
func (c Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing caller", http.StatusUnauthorized, w, nil)
		return
	}

	var in models.NewCase
	if err := decodeStrict(r, &in); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.Manager.FileCase(ctx, in, actor)
	if err != nil {
		caseError("failed to file case", w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dbResp)
}

// UpdateCaseHandler merges the request body into the case
func (c Case) UpdateCaseHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing caller", http.StatusUnauthorized, w, nil)
		return
	}

	var update models.CaseUpdate
	if err := decodeStrict(r, &update); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.Manager.UpdateCase(ctx, mux.Vars(r)["case_id"], update, actor)
	if err != nil {
		caseError("failed to update case", w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbResp)
}

// AssignCaseHandler adds the participant in the request body to the case
func (c Case) AssignCaseHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing caller", http.StatusUnauthorized, w, nil)
		return
	}

	var participant models.CaseParticipant
	if err := decodeStrict(r, &participant); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.Manager.AssignCase(ctx, mux.Vars(r)["case_id"], participant, actor)
	if err != nil {
		caseError("failed to assign case", w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbResp)
}

// AddDocumentHandler attaches document metadata to the case
func (c Case) AddDocumentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing caller", http.StatusUnauthorized, w, nil)
		return
	}

	var doc models.NewDocument
	if err := decodeStrict(r, &doc); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.Manager.AddDocument(ctx, mux.Vars(r)["case_id"], doc, actor)
	if err != nil {
		caseError("failed to add document", w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dbResp)
}

// CloseCaseHandler closes the case
func (c Case) CloseCaseHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing caller", http.StatusUnauthorized, w, nil)
		return
	}

	var req closeCaseRequest
	if r.ContentLength != 0 {
		if err := decodeStrict(r, &req); err != nil {
			config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
			return
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.Manager.CloseCase(ctx, mux.Vars(r)["case_id"], req.Notes, actor)
	if err != nil {
		caseError("failed to close case", w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbResp)
}

// AssistantHandler answers questions about the case for the calling user
func (c Case) AssistantHandler(w http.ResponseWriter, r *http.Request) {
	if c.Assistant == nil {
		config.ErrorStatus("assistant is not configured", http.StatusServiceUnavailable, w, nil)
		return
	}
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing caller", http.StatusUnauthorized, w, nil)
		return
	}

	var req chatRequest
	if err := decodeStrict(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	caseFile, err := c.Manager.GetCaseByID(r.Context(), mux.Vars(r)["case_id"])
	if err != nil {
		caseError("failed to get case", w, err)
		return
	}

	reply, err := c.Assistant.Chat(r.Context(), caseFile, actor.Role, req.Messages)
	switch {
	case errors.Is(err, assistant.ErrEmptyConversation):
		config.ErrorStatus("invalid conversation", http.StatusBadRequest, w, err)
	case errors.Is(err, assistant.ErrUpstream):
		writeJSON(w, http.StatusBadGateway, reply)
	case err != nil:
		config.ErrorStatus("failed to get assistant reply", http.StatusInternalServerError, w, err)
	default:
		writeJSON(w, http.StatusOK, reply)
	}
}

// caseError writes err with the status code matching its cause
func caseError(message string, w http.ResponseWriter, err error) {
	config.ErrorStatus(message, caseErrorStatus(err), w, err)
}

func caseErrorStatus(err error) int {
	switch {
	case errors.Is(err, cases.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cases.ErrFieldNotOwned), errors.Is(err, cases.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, cases.ErrStatusRegression), errors.Is(err, cases.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, cases.ErrEmptyUpdate),
		errors.Is(err, cases.ErrInvalidStatus),
		errors.Is(err, cases.ErrInvalidParticipant),
		errors.Is(err, cases.ErrInvalidCase):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeStrict(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
