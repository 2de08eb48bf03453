package domain

// ResourceKind is the class of object an operation targets.
type ResourceKind string

const (
	ResourceTask     ResourceKind = "task"
	ResourceEmployee ResourceKind = "employee"
	ResourceMeeting  ResourceKind = "meeting"
)

type Operation string

const (
	OpList   Operation = "list"
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Resource identifies the target. OwnerID is the assignee for tasks and empty
// for collection-level operations.
type Resource struct {
	Kind    ResourceKind
	OwnerID string
}

type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// Authorize evaluates the access rules in order; the first matching rule wins.
func Authorize(p Principal, r Resource, op Operation) Decision {
	if p.IsSuperuser {
		return Allow
	}
	if !IsValidRole(string(p.Role)) || p.UserID == "" {
		return Deny
	}

	switch r.Kind {
	case ResourceTask:
		if p.Role == RoleScrumMaster {
			return Allow
		}
		if op == OpList || op == OpCreate {
			return Allow
		}
		return Decision(r.OwnerID != "" && r.OwnerID == p.UserID)

	case ResourceEmployee:
		return Decision(p.Role == RoleScrumMaster)

	case ResourceMeeting:
		if op == OpList || op == OpRead {
			return Allow
		}
		return Decision(p.Role == RoleScrumMaster)
	}

	return Deny
}

// RequireAllowed turns a denial into ErrForbidden.
func RequireAllowed(p Principal, r Resource, op Operation) error {
	if Authorize(p, r, op) == Deny {
		return ErrForbidden()
	}
	return nil
}
