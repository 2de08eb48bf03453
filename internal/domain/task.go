package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReview     TaskStatus = "REVIEW"
	TaskDone       TaskStatus = "DONE"
)

const MaxTitleLen = 200

func IsValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskTodo, TaskInProgress, TaskReview, TaskDone:
		return true
	}
	return false
}

type Task struct {
	ID                 string
	Title              string
	Description        string
	AssignedTo         string
	AssignedToUsername string
	Status             TaskStatus
	Deadline           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ValidateTitle trims and checks a task or meeting title.
func ValidateTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", ErrMissingField("title")
	}
	if utf8.RuneCountInString(t) > MaxTitleLen {
		return "", ErrInvalidField("title", "must be at most 200 characters")
	}
	return t, nil
}

// ParseTaskStatus returns TaskTodo for an empty value.
func ParseTaskStatus(s string) (TaskStatus, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TaskTodo, nil
	}
	if !IsValidTaskStatus(s) {
		return "", ErrInvalidField("status", "must be one of TODO, IN_PROGRESS, REVIEW, DONE")
	}
	return TaskStatus(s), nil
}
