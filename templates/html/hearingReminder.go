package templates

import (
	"fmt"
	"strings"

	"github.com/linesmerrill/dharma-case-api/models"
)

// HearingReminderSubject returns the subject line for the reminder sent for
// hearings on date
func HearingReminderSubject(date string, count int) string {
	if count == 1 {
		return fmt.Sprintf("1 hearing scheduled for %s", date)
	}
	return fmt.Sprintf("%d hearings scheduled for %s", count, date)
}

// HearingReminderText returns the plain text digest of the hearings on date
func HearingReminderText(date string, hearings []models.CaseFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following cases have a hearing on %s.\n\n", date)
	for _, c := range hearings {
		fmt.Fprintf(&b, "%s: %s (%s)\n", c.ID, c.Title, c.Status)
		if c.Court != nil && *c.Court != "" {
			fmt.Fprintf(&b, "Court: %s\n", *c.Court)
		}
		names := make([]string, 0, len(c.AssignedTo))
		for _, p := range c.AssignedTo {
			names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.Role))
		}
		if len(names) > 0 {
			fmt.Fprintf(&b, "Assigned: %s\n", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHearingReminder returns the subject, HTML and plain text bodies of the
// hearing reminder digest
func RenderHearingReminder(date string, hearings []models.CaseFile) (subject, htmlBody, plainText string) {
	subject = HearingReminderSubject(date, len(hearings))
	plainText = HearingReminderText(date, hearings)
	return subject, RenderGenericEmail(subject, plainText), plainText
}
