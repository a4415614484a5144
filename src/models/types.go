package models

import (
	"errors"
	"time"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrNotLinked             = errors.New("google calendar not linked")
	ErrExternalEventNotFound = errors.New("external event not found")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrEmailInUse            = errors.New("email already in use")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrWeakPassword          = errors.New("password must be at least 6 characters")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrInvalidToken          = errors.New("invalid or expired token")
)

type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	OwnerID         string    `json:"owner_id"`
	IsExternalEvent bool      `json:"is_external_event"`
	ExternalEventID string    `json:"external_event_id,omitempty"`
}

// EventInput is what a user submits from the event form.
type EventInput struct {
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Mirror bool      `json:"mirror,omitempty"` // Ask for a local creation to be copied to Google Calendar
}

// ExternalEvent is the provider-side shape of an event: {id, summary, start.dateTime, end.dateTime}.
type ExternalEvent struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	return v[0].Field + ": " + v[0].Message
}

type SyncOperation string

const (
	SyncAdd    SyncOperation = "add"
	SyncUpdate SyncOperation = "update"
	SyncDelete SyncOperation = "delete"
)

type SyncRequest struct {
	Event  *Event
	Op     SyncOperation
	Mirror bool
}

type BatchKind string

const (
	BatchCreate BatchKind = "create"
	BatchUpdate BatchKind = "update"
	BatchDelete BatchKind = "delete"
)

type BatchOp struct {
	Kind  BatchKind
	Event Event
}

type EventFilter struct {
	ExternalOnly bool
}

type PullResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Changed reports whether the pull wrote anything to the store.
func (r *PullResult) Changed() bool {
	return r.Created+r.Updated+r.Deleted > 0
}

type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateUnverified      SessionState = "authenticated_unverified"
	StateVerified        SessionState = "authenticated_verified"
)

type SessionStatus struct {
	UserID              string       `json:"user_id"`
	Email               string       `json:"email"`
	State               SessionState `json:"state"`
	EmailVerified       bool         `json:"email_verified"`
	GoogleLinked        bool         `json:"google_linked"`
	OperationInProgress bool         `json:"operation_in_progress"`
	Restored            bool         `json:"restored"`
	LastSyncAt          *time.Time   `json:"last_sync_at,omitempty"`
}
