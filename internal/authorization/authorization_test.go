package authorization

import (
	"testing"

	"github.com/smallbiznis/campus/internal/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleHierarchy(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	// Every grant is inherited by every higher role.
	ranking := []string{
		tenantctx.RoleMember,
		tenantctx.RolePremiumUser,
		tenantctx.RoleInstructor,
		tenantctx.RoleAdmin,
	}
	rank := make(map[string]int, len(ranking))
	for i, role := range ranking {
		rank[role] = i
	}

	for _, rule := range Policies {
		for _, role := range ranking {
			allowed, err := svc.Authorize(role, rule.Object, rule.Action)
			require.NoError(t, err)
			if rank[role] >= rank[rule.Role] {
				assert.True(t, allowed, "%s should perform %s:%s", role, rule.Object, rule.Action)
			}
		}
	}
}

func TestLowerRolesDenied(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	allowed, err := svc.Authorize(tenantctx.RoleMember, "courses", "create")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = svc.Authorize(tenantctx.RolePremiumUser, "experiments", "create")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = svc.Authorize(tenantctx.RoleInstructor, "experiments", "create")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestUnknownRoleTreatedAsMember(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	allowed, err := svc.Authorize("super-duper", "posts", "read")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.Authorize("", "courses", "delete")
	require.NoError(t, err)
	assert.False(t, allowed)
}
