package assistant

import (
	"fmt"
	"strings"

	"github.com/linesmerrill/dharma-case-api/models"
)

var roleGuidance = map[models.Role]string{
	models.RolePolice: "Provide information related to investigation procedures, evidence collection, and report filing requirements. " +
		"Help with drafting police reports and understanding evidence handling procedures. " +
		"Suggest topics that should be covered in the police report.",
	models.RoleLawyer: "Provide information related to legal procedures, precedents, case law, and brief preparation. " +
		"Help with analyzing case details, identifying relevant statutes, and suggesting arguments for the brief.",
	models.RoleJudge: "Provide information related to judicial procedures, applicable laws, and judgment considerations. " +
		"Help with understanding case precedents and analyzing the evidence presented.",
	models.RoleAdmin: "Provide comprehensive information about the case and system administration options. " +
		"You can help with case management, user access, and tracking case progress.",
}

const publicGuidance = "Provide general information about the case status and process. " +
	"Explain what each stage of the case means and what might happen next."

const closingInstructions = `Here are some common tasks you can help with:
- Explaining legal terminology and procedures
- Suggesting what information should be included in reports or briefs
- Helping understand the next steps in the case
- Providing information about similar cases or precedents
- Explaining the roles of different participants in the case

Do not give specific legal advice that would need to come from a qualified professional.
Your role is to assist with understanding processes and requirements, not to provide legal opinions.
Always be respectful, clear, and helpful in your responses.`

// BuildCaseContext returns the system instruction describing c to the model
// for a user of the given role.
func BuildCaseContext(c *models.CaseFile, role models.Role) string {
	var b strings.Builder

	id := "unknown"
	if c.ID != "" {
		id = c.ID
	}
	fmt.Fprintf(&b, "You are an AI legal assistant for the Dharma platform helping with case %s.\n", id)
	fmt.Fprintf(&b, "This is a %s case filed on %s", c.Status, c.FilingDate)
	if v := deref(c.Court); v != "" {
		fmt.Fprintf(&b, " at %s", v)
	}
	b.WriteString(".\n")
	if v := deref(c.NextHearing); v != "" {
		fmt.Fprintf(&b, "The next hearing is scheduled for %s.\n", v)
	}
	b.WriteString("\n")

	if v := deref(c.PoliceReport); v != "" {
		fmt.Fprintf(&b, "Police Report: %s\n", v)
	} else {
		b.WriteString("No police report has been filed yet.\n")
	}
	if v := deref(c.LawyerBrief); v != "" {
		fmt.Fprintf(&b, "Lawyer Brief: %s\n", v)
	} else {
		b.WriteString("No lawyer brief has been filed yet.\n")
	}
	if v := deref(c.JudgeNotes); v != "" {
		fmt.Fprintf(&b, "Judge Notes: %s\n", v)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "You are speaking to a %s user.\n", role)
	guidance, ok := roleGuidance[role]
	if !ok {
		guidance = publicGuidance
	}
	b.WriteString(guidance)
	b.WriteString("\n\n")
	b.WriteString(closingInstructions)
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
