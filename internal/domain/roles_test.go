package domain

import "testing"

func TestIsValidRole(t *testing.T) {
	cases := []struct {
		role string
		ok   bool
	}{
		{"SCRUM_MASTER", true},
		{"EMPLOYEE", true},
		{"", false},
		{"employee", false},
		{"ADMIN", false},
	}

	for _, c := range cases {
		if IsValidRole(c.role) != c.ok {
			t.Fatalf("unexpected IsValidRole(%q)", c.role)
		}
	}
}

func TestRoleOrDefault(t *testing.T) {
	cases := map[string]Role{
		"SCRUM_MASTER":   RoleScrumMaster,
		" scrum_master ": RoleScrumMaster,
		"EMPLOYEE":       RoleEmployee,
		"":               RoleEmployee,
		"root":           RoleEmployee,
	}
	for in, want := range cases {
		if got := RoleOrDefault(in); got != want {
			t.Fatalf("RoleOrDefault(%q) = %s, want %s", in, got, want)
		}
	}
}
