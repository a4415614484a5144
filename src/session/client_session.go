package session

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"www.github.com/Wanderer0074348/EventSync/src/auth"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

// ClientSession is the lifecycle state of one signed-in user.
type ClientSession struct {
	mu sync.Mutex

	identity   auth.Identity
	state      models.SessionState
	restored   bool
	pending    bool // placeholder while credentials are checked
	operations int
	pulling    bool
	ended      bool
	lastSyncAt *time.Time

	verifyEntry cron.EntryID
	syncEntry   cron.EntryID
	unsubscribe func()
}

func stateFor(identity auth.Identity) models.SessionState {
	if identity.EmailVerified {
		return models.StateVerified
	}
	return models.StateUnverified
}

// apply takes a fresh identity from the provider. It reports whether the
// identity became linked.
func (s *ClientSession) apply(identity auth.Identity) bool {
	newlyLinked := identity.GoogleLinked && !s.identity.GoogleLinked
	s.identity = identity
	s.state = stateFor(identity)
	return newlyLinked
}

func (s *ClientSession) status() models.SessionStatus {
	status := models.SessionStatus{
		UserID:              s.identity.ID,
		Email:               s.identity.Email,
		State:               s.state,
		EmailVerified:       s.identity.EmailVerified,
		GoogleLinked:        s.identity.GoogleLinked,
		OperationInProgress: s.operations > 0,
		Restored:            s.restored,
	}
	if s.lastSyncAt != nil {
		at := *s.lastSyncAt
		status.LastSyncAt = &at
	}
	return status
}
