package scope

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldreport/internal/actor"
	"github.com/smallbiznis/fieldreport/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope(t *testing.T) {
	org := snowflake.ID(42)
	zero := snowflake.ID(0)
	rng := domain.DateRange{
		From: time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		name    string
		actor   actor.Actor
		wantErr error
		wantOrg *snowflake.ID
	}{
		{
			name:    "supervisor restricted to own org",
			actor:   actor.Actor{ID: 1, Role: actor.RoleSupervisor, OrgID: &org},
			wantOrg: &org,
		},
		{
			name:    "supervisor without org",
			actor:   actor.Actor{ID: 1, Role: actor.RoleSupervisor},
			wantErr: domain.ErrConfiguration,
		},
		{
			name:    "supervisor with zero org",
			actor:   actor.Actor{ID: 1, Role: actor.RoleSupervisor, OrgID: &zero},
			wantErr: domain.ErrConfiguration,
		},
		{
			name:  "admin sees all tenants",
			actor: actor.Actor{ID: 1, Role: actor.RoleAdmin, OrgID: &org},
		},
		{
			name:    "reporter rejected",
			actor:   actor.Actor{ID: 1, Role: actor.RoleReporter, OrgID: &org},
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:    "anonymous rejected",
			actor:   actor.Actor{Role: actor.RoleAdmin},
			wantErr: domain.ErrUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			filter, err := Scope(tc.actor, rng)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), filter.Range.From)
			assert.Equal(t, rng.To, filter.Range.To)
			if tc.wantOrg == nil {
				assert.Nil(t, filter.OrgID)
				assert.Equal(t, "global", Name(filter))
				return
			}
			require.NotNil(t, filter.OrgID)
			assert.Equal(t, *tc.wantOrg, *filter.OrgID)
			assert.Equal(t, "organization", Name(filter))
		})
	}
}

func TestScopeRejectsInvertedRange(t *testing.T) {
	a := actor.Actor{ID: 1, Role: actor.RoleAdmin}
	_, err := Scope(a, domain.DateRange{
		From: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestScopeOpenBounds(t *testing.T) {
	org := snowflake.ID(9)
	filter, err := Scope(actor.Actor{ID: 1, Role: actor.RoleSupervisor, OrgID: &org}, domain.DateRange{})
	require.NoError(t, err)
	assert.True(t, filter.Range.From.IsZero())
	assert.True(t, filter.Range.To.IsZero())
}
