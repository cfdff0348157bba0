package api

import (
	"context"
	"time"

	"github.com/linesmerrill/dharma-case-api/models"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

type actorKey struct{}

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// WithActor returns a copy of ctx carrying the authenticated participant
func WithActor(ctx context.Context, actor models.CaseParticipant) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the participant stored by the auth middleware
func ActorFromContext(ctx context.Context) (models.CaseParticipant, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.CaseParticipant)
	return actor, ok
}
