package cases

import (
	"github.com/linesmerrill/dharma-case-api/models"
)

// fieldOwners maps the role-owned report fields to the only role allowed to write them
var fieldOwners = map[string]models.Role{
	"policeReport": models.RolePolice,
	"lawyerBrief":  models.RoleLawyer,
	"judgeNotes":   models.RoleJudge,
}

// canSetStatus lists the roles that may move the status explicitly
var canSetStatus = map[models.Role]bool{
	models.RoleJudge: true,
	models.RoleAdmin: true,
}

// checkOwnership rejects writes to report fields owned by another role and
// explicit status changes by roles that may not make them.
func checkOwnership(update models.CaseUpdate, actor models.CaseParticipant) error {
	for _, field := range update.FieldNames() {
		if owner, ok := fieldOwners[field]; ok && owner != actor.Role {
			return ErrFieldNotOwned
		}
	}
	if update.Status != nil && !canSetStatus[actor.Role] {
		return ErrForbidden
	}
	return nil
}

// advanceOnUpdate returns the status a case moves to when update is applied to
// a case currently in status from. Each rule targets a different starting
// status so at most one fires.
func advanceOnUpdate(from models.CaseStatus, update models.CaseUpdate) models.CaseStatus {
	switch {
	case update.PoliceReport != nil && from == models.StatusDraft:
		return models.StatusFiled
	case update.LawyerBrief != nil && (from == models.StatusFiled || from == models.StatusAssigned):
		return models.StatusInProgress
	case update.JudgeNotes != nil && from == models.StatusInProgress:
		return models.StatusPendingJudgment
	}
	return from
}

// advanceOnAssign returns the status a case moves to when a participant with
// the given role is assigned.
func advanceOnAssign(from models.CaseStatus, role models.Role) models.CaseStatus {
	switch {
	case from == models.StatusFiled && role == models.RoleLawyer:
		return models.StatusAssigned
	case from == models.StatusAssigned && role == models.RoleJudge:
		return models.StatusPendingJudgment
	}
	return from
}

// resolveStatus combines an explicit status request with the rule-driven one.
// An explicit status must be known and must not move backwards; the later of
// the two stages wins.
func resolveStatus(from models.CaseStatus, explicit *models.CaseStatus, ruled models.CaseStatus) (models.CaseStatus, error) {
	if explicit == nil {
		return ruled, nil
	}
	if !explicit.Valid() {
		return from, ErrInvalidStatus
	}
	if explicit.Rank() < from.Rank() {
		return from, ErrStatusRegression
	}
	if ruled.Rank() > explicit.Rank() {
		return ruled, nil
	}
	return *explicit, nil
}
