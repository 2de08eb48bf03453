package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	IsSuperuser  bool
	CreatedAt    time.Time
}

// EmployeeSummary is a user row with the number of tasks assigned to it.
type EmployeeSummary struct {
	ID        string
	Username  string
	TaskCount int
}

// Principal is the authenticated caller, resolved from the identity store on
// every request.
type Principal struct {
	UserID      string
	Username    string
	Role        Role
	IsSuperuser bool
}

func PrincipalOf(u *User) Principal {
	return Principal{
		UserID:      u.ID,
		Username:    u.Username,
		Role:        u.Role,
		IsSuperuser: u.IsSuperuser,
	}
}

// SeesAllTasks reports whether list queries may skip the assignee filter.
func (p Principal) SeesAllTasks() bool {
	return p.IsSuperuser || p.Role == RoleScrumMaster
}

const MaxUsernameLen = 150

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// NormalizeUsername trims raw and applies the username rules shared by
// registration and renaming: required, at most MaxUsernameLen characters,
// letters, digits and @/./+/-/_ only.
func NormalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	if username == "" {
		return "", ErrMissingField("username")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLen {
		return "", ErrInvalidField("username", "must be at most 150 characters")
	}
	if !usernamePattern.MatchString(username) {
		return "", ErrInvalidField("username", "letters, digits and @/./+/-/_ only")
	}
	return username, nil
}
