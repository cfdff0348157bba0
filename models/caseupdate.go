package models

// CaseUpdate is the closed set of case fields a caller may set. Nil fields are
// left untouched.
type CaseUpdate struct {
	Title        *string     `json:"title,omitempty"`
	Description  *string     `json:"description,omitempty"`
	Status       *CaseStatus `json:"status,omitempty"`
	Court        *string     `json:"court,omitempty"`
	NextHearing  *string     `json:"nextHearing,omitempty"`
	PoliceReport *string     `json:"policeReport,omitempty"`
	LawyerBrief  *string     `json:"lawyerBrief,omitempty"`
	JudgeNotes   *string     `json:"judgeNotes,omitempty"`
}

// FieldNames lists the json names of the fields set on u, in declaration order
func (u CaseUpdate) FieldNames() []string {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(u.Title != nil, "title")
	add(u.Description != nil, "description")
	add(u.Status != nil, "status")
	add(u.Court != nil, "court")
	add(u.NextHearing != nil, "nextHearing")
	add(u.PoliceReport != nil, "policeReport")
	add(u.LawyerBrief != nil, "lawyerBrief")
	add(u.JudgeNotes != nil, "judgeNotes")
	return names
}

// IsEmpty reports whether u sets no field at all
func (u CaseUpdate) IsEmpty() bool {
	return len(u.FieldNames()) == 0
}

// ApplyTo merges u into c, last write wins per field. Status is not applied
// here; the lifecycle manager decides the resulting status.
func (u CaseUpdate) ApplyTo(c *CaseFile) {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Court != nil {
		c.Court = cloneString(u.Court)
	}
	if u.NextHearing != nil {
		c.NextHearing = cloneString(u.NextHearing)
	}
	if u.PoliceReport != nil {
		c.PoliceReport = cloneString(u.PoliceReport)
	}
	if u.LawyerBrief != nil {
		c.LawyerBrief = cloneString(u.LawyerBrief)
	}
	if u.JudgeNotes != nil {
		c.JudgeNotes = cloneString(u.JudgeNotes)
	}
}
