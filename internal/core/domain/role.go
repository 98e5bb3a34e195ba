package domain

import "strings"

// Role identifies a capability bundle a participant is admitted with.
type Role string

const (
	RoleBroadcaster        Role = "broadcaster"
	RoleCoBroadcaster      Role = "co-broadcaster"
	RoleViewerRealtime     Role = "viewer-realtime"
	RoleViewerNearRealtime Role = "viewer-near-realtime"
)

// DefaultRole is used when a join request does not name a role.
const DefaultRole = RoleViewerRealtime

// RoleDescriptor is the public description of a role.
type RoleDescriptor struct {
	ID          Role   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CanPublish  bool   `json:"canPublish"`
	CanControl  bool   `json:"canControl"`
}

// roleRegistry is the closed set of roles, in the order they are presented.
var roleRegistry = []RoleDescriptor{
	{
		ID:          RoleBroadcaster,
		Name:        "Broadcaster",
		Description: "Can publish audio/video and start/stop streams",
		CanPublish:  true,
		CanControl:  true,
	},
	{
		ID:          RoleCoBroadcaster,
		Name:        "Co-Broadcaster",
		Description: "Can publish audio/video but cannot start/stop streams",
		CanPublish:  true,
		CanControl:  false,
	},
	{
		ID:          RoleViewerRealtime,
		Name:        "Viewer (Real-time)",
		Description: "Watch with low latency, can interact via chat",
	},
	{
		ID:          RoleViewerNearRealtime,
		Name:        "Viewer (HLS)",
		Description: "Watch with slight delay, scalable for large audiences",
	},
}

func (r Role) String() string {
	return string(r)
}

// IsValidRole reports whether r belongs to the registry.
func IsValidRole(r Role) bool {
	_, ok := DescribeRole(r)
	return ok
}

// DescribeRole returns the descriptor for r. Unknown roles are never described.
func DescribeRole(r Role) (RoleDescriptor, bool) {
	for _, d := range roleRegistry {
		if d.ID == r {
			return d, true
		}
	}
	return RoleDescriptor{}, false
}

// Roles returns a copy of every registered role descriptor.
func Roles() []RoleDescriptor {
	out := make([]RoleDescriptor, len(roleRegistry))
	copy(out, roleRegistry)
	return out
}

// RoleIDs returns the registered role identifiers.
func RoleIDs() []Role {
	ids := make([]Role, 0, len(roleRegistry))
	for _, d := range roleRegistry {
		ids = append(ids, d.ID)
	}
	return ids
}

// ValidRolesList renders the role set for error messages.
func ValidRolesList() string {
	names := make([]string, 0, len(roleRegistry))
	for _, d := range roleRegistry {
		names = append(names, string(d.ID))
	}
	return strings.Join(names, ", ")
}
