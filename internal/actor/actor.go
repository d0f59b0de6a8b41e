package actor

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleReporter   Role = "reporter"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// ParseRole normalizes a stored role value. Unknown values return false.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleReporter:
		return RoleReporter, true
	case RoleSupervisor:
		return RoleSupervisor, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Actor is an already-authenticated caller.
type Actor struct {
	ID    snowflake.ID  `json:"id"`
	Name  string        `json:"name"`
	Role  Role          `json:"role"`
	OrgID *snowflake.ID `json:"organization_id,omitempty"`
}

func (a Actor) HasOrg() bool {
	return a.OrgID != nil && *a.OrgID != 0
}

func (a Actor) OrgIDString() string {
	if !a.HasOrg() {
		return ""
	}
	return a.OrgID.String()
}

type contextKey struct{}

// WithActor stores the resolved actor on a request context. Only the HTTP
// adapter reads it back; services take the actor as an argument.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(contextKey{}).(Actor)
	if !ok || a.ID == 0 {
		return Actor{}, false
	}
	return a, true
}
