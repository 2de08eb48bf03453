package domain

import "time"

// Events published to the message broker.

type TaskCreatedEvent struct {
	TaskID     string    `json:"task_id"`
	Title      string    `json:"title"`
	AssignedTo string    `json:"assigned_to"`
	CreatedBy  string    `json:"created_by"`
	At         time.Time `json:"at"`
}

type TaskCompletedEvent struct {
	TaskID string    `json:"task_id"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

type MeetingScheduledEvent struct {
	MeetingID   string     `json:"meeting_id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}
