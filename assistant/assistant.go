// Package assistant answers questions about a single case through a
// generative model primed with the case details.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/linesmerrill/dharma-case-api/logging"
	"github.com/linesmerrill/dharma-case-api/models"
)

var (
	// ErrEmptyConversation is returned when there is no user message to answer
	ErrEmptyConversation = errors.New("conversation must end with a user message")
	// ErrUpstream is returned when the model call fails
	ErrUpstream = errors.New("assistant unavailable")
)

// Conversation roles
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of a conversation
type Message struct {
	Role  string `json:"role"`
	Parts string `json:"parts"`
}

// Reply is the answer to a conversation. Error is set instead of Text when the
// model could not be reached.
type Reply struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Generator produces the next model turn for a conversation
type Generator interface {
	Generate(ctx context.Context, system string, history []Message) (string, error)
}

// Service answers case questions
type Service struct {
	gen Generator
	log *zap.SugaredLogger
}

// NewService returns a Service using gen
func NewService(gen Generator) *Service {
	return &Service{gen: gen, log: logging.New("assistant")}
}

// Chat answers the last user message in history about c for a user of role
func (s *Service) Chat(ctx context.Context, c *models.CaseFile, role models.Role, history []Message) (Reply, error) {
	if len(history) == 0 || history[len(history)-1].Role != RoleUser {
		return Reply{}, ErrEmptyConversation
	}
	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleModel {
			return Reply{}, fmt.Errorf("%w: unknown role %q", ErrEmptyConversation, m.Role)
		}
	}

	text, err := s.gen.Generate(ctx, BuildCaseContext(c, role), history)
	if err != nil {
		s.log.Errorw("assistant call failed", "caseId", c.ID, "error", err)
		return Reply{Error: err.Error()}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	s.log.Debugw("assistant replied", "caseId", c.ID, "role", role, "turns", len(history))
	return Reply{Text: text}, nil
}
