// Package notify provides notification dispatching for backup events.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event represents a notification event with all context needed for formatting.
type Event struct {
	// ID uniquely identifies the event
	ID string

	// Type is the event type (backup-started, backup-completed, etc.)
	Type string

	// Repository is the repository name
	Repository string

	// Account is the GitHub account that owns the repository
	Account string

	// Path is the local folder (if applicable)
	Path string

	// Timestamp is when the event occurred
	Timestamp time.Time

	// Success indicates if the operation succeeded
	Success bool

	// Error contains error details if the operation failed
	Error string

	// Extra contains additional event-specific data
	Extra map[string]string
}

// Sender is the interface for notification senders.
type Sender interface {
	// Send sends a notification for the given event.
	// Returns an error if the notification could not be sent.
	Send(ctx context.Context, event *Event) error

	// Name returns the sender's name for logging purposes.
	Name() string

	// Test sends a test notification to verify configuration.
	Test(ctx context.Context) error
}

// Event types that can trigger notifications.
const (
	EventBackupStarted   = "backup-started"
	EventBackupCompleted = "backup-completed"
	EventNewProject      = "new-project"
	EventRepoCreated     = "repo-created"
	EventSweepCompleted  = "sweep-completed"
	EventStatus          = "status"
	EventError           = "error"
)

// NewEvent creates a new event with the given type and sets the timestamp.
func NewEvent(eventType string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Success:   true,
		Extra:     make(map[string]string),
	}
}

// WithRepository sets the repository on the event.
func (e *Event) WithRepository(repo string) *Event {
	e.Repository = repo
	return e
}

// WithAccount sets the owning account on the event.
func (e *Event) WithAccount(account string) *Event {
	e.Account = account
	return e
}

// WithPath sets the local folder on the event.
func (e *Event) WithPath(path string) *Event {
	e.Path = path
	return e
}

// WithError sets the error on the event and marks it as failed.
func (e *Event) WithError(err string) *Event {
	e.Error = err
	e.Success = false

	return e
}

// WithExtra adds extra data to the event.
func (e *Event) WithExtra(key, value string) *Event {
	if e.Extra == nil {
		e.Extra = make(map[string]string)
	}

	e.Extra[key] = value

	return e
}
