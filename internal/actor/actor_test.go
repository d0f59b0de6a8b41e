package actor

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{in: "reporter", want: RoleReporter, ok: true},
		{in: " Supervisor ", want: RoleSupervisor, ok: true},
		{in: "ADMIN", want: RoleAdmin, ok: true},
		{in: "owner", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	org := snowflake.ID(7)
	a := Actor{ID: 42, Name: "m", Role: RoleSupervisor, OrgID: &org}
	got, ok := FromContext(WithActor(context.Background(), a))
	assert.True(t, ok)
	assert.Equal(t, a, got)
	assert.True(t, got.HasOrg())
	assert.Equal(t, "7", got.OrgIDString())
}
