package seed

import (
	"testing"

	"github.com/smallbiznis/fieldreport/internal/actor"
	organizationdomain "github.com/smallbiznis/fieldreport/internal/organization/domain"
	userdomain "github.com/smallbiznis/fieldreport/internal/user/domain"
	"github.com/smallbiznis/fieldreport/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDemoDataIsIdempotent(t *testing.T) {
	conn := db.NewTest(t, &organizationdomain.Organization{}, &userdomain.User{})

	require.NoError(t, EnsureDemoData(conn))
	require.NoError(t, EnsureDemoData(conn))

	var orgs []organizationdomain.Organization
	require.NoError(t, conn.Order("code asc").Find(&orgs).Error)
	require.Len(t, orgs, 2)
	assert.Equal(t, "north-branch-group", orgs[0].Code)

	var users []userdomain.User
	require.NoError(t, conn.Find(&users).Error)
	assert.Len(t, users, 7)

	byRole := map[actor.Role]int{}
	for _, u := range users {
		byRole[u.Role]++
		if u.Role == actor.RoleAdmin {
			assert.Nil(t, u.OrganizationID)
		} else {
			assert.NotNil(t, u.OrganizationID, u.Username)
		}
	}
	assert.Equal(t, 1, byRole[actor.RoleAdmin])
	assert.Equal(t, 2, byRole[actor.RoleSupervisor])
	assert.Equal(t, 4, byRole[actor.RoleReporter])
}
