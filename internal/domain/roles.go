package domain

import "strings"

type Role string

const (
	// Scrum Master manages every task, the employee roster and meetings. At most one exists.
	RoleScrumMaster Role = "SCRUM_MASTER"
	// Employee works on the tasks assigned to them.
	RoleEmployee Role = "EMPLOYEE"
)

func IsValidRole(r string) bool {
	return r == string(RoleScrumMaster) || r == string(RoleEmployee)
}

// RoleOrDefault resolves a stored role. Anything unrecognised is treated as the
// least privileged role.
func RoleOrDefault(r string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(r))) {
	case RoleScrumMaster:
		return RoleScrumMaster
	default:
		return RoleEmployee
	}
}

func (r Role) String() string { return string(r) }
