package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidRole(t *testing.T) {
	for _, r := range []Role{RoleBroadcaster, RoleCoBroadcaster, RoleViewerRealtime, RoleViewerNearRealtime} {
		assert.True(t, IsValidRole(r), r)
	}
	for _, r := range []Role{"", "admin", "Broadcaster", "viewer", " broadcaster"} {
		assert.False(t, IsValidRole(r), r)
	}
}

func TestDescribeRole(t *testing.T) {
	cases := []struct {
		role       Role
		canPublish bool
		canControl bool
	}{
		{RoleBroadcaster, true, true},
		{RoleCoBroadcaster, true, false},
		{RoleViewerRealtime, false, false},
		{RoleViewerNearRealtime, false, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			d, ok := DescribeRole(tc.role)
			require.True(t, ok)
			assert.Equal(t, tc.role, d.ID)
			assert.NotEmpty(t, d.Name)
			assert.NotEmpty(t, d.Description)
			assert.Equal(t, tc.canPublish, d.CanPublish)
			assert.Equal(t, tc.canControl, d.CanControl)
		})
	}

	_, ok := DescribeRole("admin")
	assert.False(t, ok)
}

func TestRoles_ReturnsCopy(t *testing.T) {
	roles := Roles()
	require.Len(t, roles, 4)
	roles[0].CanControl = false

	d, _ := DescribeRole(RoleBroadcaster)
	assert.True(t, d.CanControl)
}

func TestRoleIDsAndList(t *testing.T) {
	assert.Equal(t, []Role{RoleBroadcaster, RoleCoBroadcaster, RoleViewerRealtime, RoleViewerNearRealtime}, RoleIDs())
	assert.Equal(t, "broadcaster, co-broadcaster, viewer-realtime, viewer-near-realtime", ValidRolesList())
	assert.True(t, IsValidRole(DefaultRole))
}

func TestRecordingQueryStart(t *testing.T) {
	assert.Equal(t, 0, RecordingQuery{Page: 1, Limit: 10}.Start())
	assert.Equal(t, 40, RecordingQuery{Page: 3, Limit: 20}.Start())
}
