package domain

import (
	"strings"
	"time"
)

type Meeting struct {
	ID          string
	Title       string
	Link        string
	Description string
	ScheduledAt *time.Time
	CreatedAt   time.Time
}

// Accepted scheduled_at layouts, tried in order. Month, day and hour may be
// written without a leading zero.
var meetingTimeLayouts = []string{
	"2006-1-2T15:04",
	"2006-1-2 15:04:05",
	"1/2/2006 3:04 PM",
	time.RFC3339,
}

// ParseScheduledAt reads a scheduled time in any of the accepted layouts. An
// empty value means "not scheduled" and returns nil.
func ParseScheduledAt(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	// time.Parse only matches an upper-case AM/PM marker.
	raw = strings.ToUpper(raw)
	for _, layout := range meetingTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, ErrInvalidField("scheduled_at", "expected YYYY-MM-DDTHH:MM, YYYY-MM-DD HH:MM:SS or MM/DD/YYYY HH:MM AM/PM")
}
