package memory

import (
	"sync"

	"github.com/baechuer/taskflow/internal/domain"
)

// DB is the shared in-process state behind the memory repositories. Users and
// tasks live together so the username/assignee constraints and the
// employee cascade can be enforced under one lock.
type DB struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byUsername map[string]string // lower(username) -> userID
	scrumID    string
	tasks      map[string]domain.Task
	meetings   map[string]domain.Meeting
}

func NewDB() *DB {
	return &DB{
		users:      make(map[string]domain.User),
		byUsername: make(map[string]string),
		tasks:      make(map[string]domain.Task),
		meetings:   make(map[string]domain.Meeting),
	}
}
