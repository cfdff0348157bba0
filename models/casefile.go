package models

// Role identifies which portal a participant acts through
type Role string

// Roles known to the case lifecycle
const (
	RolePolice Role = "police"
	RoleLawyer Role = "lawyer"
	RoleJudge  Role = "judge"
	RolePublic Role = "public"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RolePolice, RoleLawyer, RoleJudge, RolePublic, RoleAdmin:
		return true
	}
	return false
}

// CaseStatus is the lifecycle stage of a case
type CaseStatus string

// Case statuses in lifecycle order
const (
	StatusDraft           CaseStatus = "draft"
	StatusFiled           CaseStatus = "filed"
	StatusAssigned        CaseStatus = "assigned"
	StatusInProgress      CaseStatus = "in_progress"
	StatusPendingJudgment CaseStatus = "pending_judgment"
	StatusClosed          CaseStatus = "closed"
)

var statusRank = map[CaseStatus]int{
	StatusDraft:           0,
	StatusFiled:           1,
	StatusAssigned:        2,
	StatusInProgress:      3,
	StatusPendingJudgment: 4,
	StatusClosed:          5,
}

// Rank returns the position of s in the lifecycle, or -1 for an unknown status
func (s CaseStatus) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// Valid reports whether s is a known status
func (s CaseStatus) Valid() bool {
	return s.Rank() >= 0
}

// CaseParticipant is an actor attached to a case as creator, assignee or history actor
type CaseParticipant struct {
	ID   string `json:"id" bson:"id" yaml:"id"`
	Name string `json:"name" bson:"name" yaml:"name"`
	Role Role   `json:"role" bson:"role" yaml:"role"`
}

// CaseFile holds the structure for the cases collection. PoliceReport,
// LawyerBrief and JudgeNotes are each owned by exactly one role.
type CaseFile struct {
	ID           string            `json:"id" bson:"_id" yaml:"id"`
	Title        string            `json:"title" bson:"title" yaml:"title"`
	Description  string            `json:"description" bson:"description" yaml:"description"`
	FilingDate   string            `json:"filingDate" bson:"filingDate" yaml:"filingDate"`
	Status       CaseStatus        `json:"status" bson:"status" yaml:"status"`
	Court        *string           `json:"court,omitempty" bson:"court,omitempty" yaml:"court,omitempty"`
	NextHearing  *string           `json:"nextHearing,omitempty" bson:"nextHearing,omitempty" yaml:"nextHearing,omitempty"`
	PoliceReport *string           `json:"policeReport,omitempty" bson:"policeReport,omitempty" yaml:"policeReport,omitempty"`
	LawyerBrief  *string           `json:"lawyerBrief,omitempty" bson:"lawyerBrief,omitempty" yaml:"lawyerBrief,omitempty"`
	JudgeNotes   *string           `json:"judgeNotes,omitempty" bson:"judgeNotes,omitempty" yaml:"judgeNotes,omitempty"`
	AssignedTo   []CaseParticipant `json:"assignedTo,omitempty" bson:"assignedTo,omitempty" yaml:"assignedTo,omitempty"`
	CreatedBy    CaseParticipant   `json:"createdBy" bson:"createdBy" yaml:"createdBy"`
	History      []HistoryEntry    `json:"history" bson:"history" yaml:"history"`
	Documents    []CaseDocument    `json:"documents" bson:"documents" yaml:"documents"`
	Version      int32             `json:"__v" bson:"__v" yaml:"-"`
}

// HistoryEntry records a single action taken on a case. Entries are never
// rewritten once appended.
type HistoryEntry struct {
	Date   string          `json:"date" bson:"date" yaml:"date"`
	Action string          `json:"action" bson:"action" yaml:"action"`
	User   CaseParticipant `json:"user" bson:"user" yaml:"user"`
	Notes  string          `json:"notes,omitempty" bson:"notes,omitempty" yaml:"notes,omitempty"`
}

// CaseDocument is the metadata of a document attached to a case
type CaseDocument struct {
	ID         string          `json:"id" bson:"id" yaml:"id"`
	Title      string          `json:"title" bson:"title" yaml:"title"`
	Type       string          `json:"type" bson:"type" yaml:"type"`
	UploadedBy CaseParticipant `json:"uploadedBy" bson:"uploadedBy" yaml:"uploadedBy"`
	UploadedOn string          `json:"uploadedOn" bson:"uploadedOn" yaml:"uploadedOn"`
	URL        string          `json:"url" bson:"url" yaml:"url"`
}

// NewDocument is a document as submitted, before an id is allocated
type NewDocument struct {
	Title      string           `json:"title"`
	Type       string           `json:"type"`
	UploadedBy *CaseParticipant `json:"uploadedBy,omitempty"`
	UploadedOn string           `json:"uploadedOn,omitempty"`
	URL        string           `json:"url"`
}

// NewCase is the payload used when a case is first filed
type NewCase struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Court        *string `json:"court,omitempty"`
	NextHearing  *string `json:"nextHearing,omitempty"`
	PoliceReport *string `json:"policeReport,omitempty"`
}

// Clone returns a deep copy of c
func (c CaseFile) Clone() CaseFile {
	out := c
	out.Court = cloneString(c.Court)
	out.NextHearing = cloneString(c.NextHearing)
	out.PoliceReport = cloneString(c.PoliceReport)
	out.LawyerBrief = cloneString(c.LawyerBrief)
	out.JudgeNotes = cloneString(c.JudgeNotes)
	if c.AssignedTo != nil {
		out.AssignedTo = append([]CaseParticipant(nil), c.AssignedTo...)
	}
	if c.History != nil {
		out.History = append([]HistoryEntry(nil), c.History...)
	}
	if c.Documents != nil {
		out.Documents = append([]CaseDocument(nil), c.Documents...)
	}
	return out
}

// IsAssigned reports whether a participant with the given id is assigned to the case
func (c CaseFile) IsAssigned(participantID string) bool {
	for _, p := range c.AssignedTo {
		if p.ID == participantID {
			return true
		}
	}
	return false
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
