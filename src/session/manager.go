package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"www.github.com/Wanderer0074348/EventSync/src/auth"
	"www.github.com/Wanderer0074348/EventSync/src/cache"
	"www.github.com/Wanderer0074348/EventSync/src/config"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

const backgroundTimeout = 30 * time.Second

var (
	ErrNoSession        = errors.New("no active session")
	ErrSyncInProgress   = errors.New("sync already in progress")
	ErrOperationRunning = errors.New("operation in progress")
)

type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*auth.User, error)
	SignUp(ctx context.Context, email, password string) (*auth.User, error)
	Lookup(ctx context.Context, email string) (*auth.User, error)
	SendVerificationEmail(ctx context.Context, userID string) error
	Reload(ctx context.Context, userID string) (*auth.User, error)
	SetGoogleLinked(ctx context.Context, userID string, linked bool) (*auth.User, error)
	SignOut(ctx context.Context, userID string) error
}

type GrantRevoker interface {
	Revoke(ctx context.Context, ownerID string) error
}

// Manager owns every client session: the verification poll, the store
// subscription feeding the local cache and the periodic pull.
type Manager struct {
	provider  IdentityProvider
	grants    GrantRevoker
	store     models.EventStore
	cache     models.LocalCache
	puller    models.Puller
	scheduler *Scheduler

	verifyInterval time.Duration
	pullInterval   time.Duration

	mu         sync.Mutex
	sessions   map[string]*ClientSession
	background sync.WaitGroup
}

func NewManager(
	provider IdentityProvider,
	grants GrantRevoker,
	store models.EventStore,
	localCache models.LocalCache,
	puller models.Puller,
	scheduler *Scheduler,
	authCfg *config.AuthConfig,
	syncCfg *config.SyncConfig,
) *Manager {
	return &Manager{
		provider:       provider,
		grants:         grants,
		store:          store,
		cache:          localCache,
		puller:         puller,
		scheduler:      scheduler,
		verifyInterval: authCfg.VerifyInterval,
		pullInterval:   syncCfg.PullInterval,
		sessions:       make(map[string]*ClientSession),
	}
}

func (m *Manager) get(userID string) *ClientSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// register adds a session for userID unless one exists. created is false
// when an existing session was returned.
func (m *Manager) register(userID string, session *ClientSession) (*ClientSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[userID]; ok {
		return existing, false
	}
	m.sessions[userID] = session
	return session, true
}

func (m *Manager) remove(userID string) *ClientSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	session := m.sessions[userID]
	delete(m.sessions, userID)
	return session
}

// beginExchange registers a placeholder session in the authenticating state
// for a known user whose credentials are being checked. The returned func
// drops the placeholder unless the exchange activated it.
func (m *Manager) beginExchange(ctx context.Context, email string) func() {
	known, err := m.provider.Lookup(ctx, email)
	if err != nil {
		return func() {}
	}

	placeholder := &ClientSession{
		identity: auth.Identity{ID: known.ID, Email: known.Email},
		state:    models.StateAuthenticating,
		pending:  true,
	}
	if _, created := m.register(known.ID, placeholder); !created {
		return func() {}
	}

	return func() {
		placeholder.mu.Lock()
		pending := placeholder.pending
		placeholder.mu.Unlock()
		if !pending {
			return
		}

		m.mu.Lock()
		if m.sessions[known.ID] == placeholder {
			delete(m.sessions, known.ID)
		}
		m.mu.Unlock()
		m.stop(placeholder)
	}
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*auth.User, error) {
	release := m.beginExchange(ctx, email)
	defer release()

	user, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	m.activate(ctx, user)
	return user, nil
}

func (m *Manager) SignUp(ctx context.Context, email, password string) (*auth.User, error) {
	user, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := m.provider.SendVerificationEmail(ctx, user.ID); err != nil {
		log.Printf("⚠️  Failed to send verification mail to %s: %v", user.Email, err)
	}

	m.activate(ctx, user)
	return user, nil
}

// activate moves a freshly authenticated user into a running session.
func (m *Manager) activate(ctx context.Context, user *auth.User) {
	session := &ClientSession{state: models.StateAuthenticating}
	session, _ = m.register(user.ID, session)

	session.mu.Lock()
	session.pending = false
	session.restored = false
	session.apply(user.Identity())
	session.mu.Unlock()

	m.persistIdentity(ctx, session, user.Identity())
	m.start(session, user.ID)
	log.Printf("✓ Session started for %s", user.Email)
}

// start launches the verification poll, the store subscription and, for
// linked identities, the sync schedule. Already running parts are left alone.
func (m *Manager) start(session *ClientSession, userID string) {
	session.mu.Lock()
	if session.ended {
		session.mu.Unlock()
		return
	}
	if session.verifyEntry == 0 {
		session.verifyEntry = m.scheduler.Every(m.verifyInterval, func() { m.verifyTick(userID) })
	}
	needsSubscription := session.unsubscribe == nil
	linked := session.identity.GoogleLinked
	session.mu.Unlock()

	if needsSubscription {
		m.subscribe(session, userID)
	}
	if linked {
		m.startSync(session, userID)
	}
}

func (m *Manager) subscribe(session *ClientSession, userID string) {
	unsubscribe, err := m.store.Subscribe(context.Background(), userID, func(events []models.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		// Held across the write so Logout purges only after it lands.
		session.mu.Lock()
		defer session.mu.Unlock()
		if session.ended {
			return
		}
		if err := cache.SaveEvents(ctx, m.cache, userID, events); err != nil {
			log.Printf("⚠️  Failed to cache events for %s: %v", userID, err)
		}
	})
	if err != nil {
		log.Printf("⚠️  Failed to subscribe to events of %s: %v", userID, err)
		return
	}

	session.mu.Lock()
	keep := !session.ended && session.unsubscribe == nil
	if keep {
		session.unsubscribe = unsubscribe
	}
	session.mu.Unlock()

	if !keep {
		unsubscribe()
	}
}

// startSync schedules the periodic pull and runs one pull right away.
func (m *Manager) startSync(session *ClientSession, userID string) {
	session.mu.Lock()
	if session.ended || session.syncEntry != 0 {
		session.mu.Unlock()
		return
	}
	session.syncEntry = m.scheduler.Every(m.pullInterval, func() { m.syncTick(userID) })
	session.mu.Unlock()

	m.background.Add(1)
	go func() {
		defer m.background.Done()
		m.syncTick(userID)
	}()
}

// persistIdentity caches the identity unless the session has ended. The
// session lock is held across the write so Logout purges only after it lands.
func (m *Manager) persistIdentity(ctx context.Context, session *ClientSession, identity auth.Identity) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.ended {
		return
	}
	if err := cache.SaveIdentity(ctx, m.cache, identity.ID, identity); err != nil {
		log.Printf("⚠️  Failed to cache identity of %s: %v", identity.ID, err)
	}
}

func (m *Manager) verifyTick(userID string) {
	session := m.get(userID)
	if session == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	user, err := m.provider.Reload(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) {
		log.Printf("⚠️  Identity %s is gone, logging out", userID)
		if err := m.Logout(ctx, userID); err != nil {
			log.Printf("⚠️  Logout of %s finished with errors: %v", userID, err)
		}
		return
	}
	if err != nil {
		log.Printf("❌ Verification poll for %s stopped: %v", userID, err)
		session.mu.Lock()
		m.scheduler.Remove(session.verifyEntry)
		session.verifyEntry = 0
		session.mu.Unlock()
		return
	}

	session.mu.Lock()
	if session.ended {
		session.mu.Unlock()
		return
	}
	changed := session.identity != user.Identity()
	newlyLinked := session.apply(user.Identity())
	session.restored = false
	session.mu.Unlock()

	if changed {
		m.persistIdentity(ctx, session, user.Identity())
	}
	if newlyLinked {
		m.startSync(session, userID)
	}
}

func (m *Manager) syncTick(userID string) {
	session := m.get(userID)
	if session == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	if _, err := m.pull(ctx, session, userID, false); err != nil {
		if errors.Is(err, ErrOperationRunning) || errors.Is(err, ErrSyncInProgress) {
			return
		}
		log.Printf("⚠️  Periodic pull for %s failed: %v", userID, err)
	}
}

// pull runs one reconciliation for the session. Periodic pulls yield to
// user operations; no two pulls of a session overlap.
func (m *Manager) pull(ctx context.Context, session *ClientSession, userID string, manual bool) (*models.PullResult, error) {
	session.mu.Lock()
	switch {
	case session.ended:
		session.mu.Unlock()
		return nil, ErrNoSession
	case !session.identity.GoogleLinked:
		session.mu.Unlock()
		return nil, models.ErrNotLinked
	case !manual && session.operations > 0:
		session.mu.Unlock()
		return nil, ErrOperationRunning
	case session.pulling:
		session.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	session.pulling = true
	session.mu.Unlock()

	result, err := m.puller.PullOnce(ctx, userID)

	session.mu.Lock()
	session.pulling = false
	if err == nil {
		now := time.Now()
		session.lastSyncAt = &now
	}
	session.mu.Unlock()

	return result, err
}

// SyncNow is the manual sync trigger.
func (m *Manager) SyncNow(ctx context.Context, userID string) (*models.PullResult, error) {
	session := m.get(userID)
	if session == nil {
		return nil, ErrNoSession
	}
	return m.pull(ctx, session, userID, true)
}

// MarkLinked records the linkage server-side and starts syncing.
func (m *Manager) MarkLinked(ctx context.Context, userID string) error {
	user, err := m.provider.SetGoogleLinked(ctx, userID, true)
	if err != nil {
		return fmt.Errorf("failed to mark %s as linked: %w", userID, err)
	}

	session := m.get(userID)
	if session == nil {
		return nil
	}

	session.mu.Lock()
	session.apply(user.Identity())
	session.mu.Unlock()
	m.persistIdentity(ctx, session, user.Identity())

	m.startSync(session, userID)
	log.Printf("✓ Google Calendar linked for %s", user.Email)
	return nil
}

func (m *Manager) IsLinked(userID string) bool {
	session := m.get(userID)
	if session == nil {
		return false
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.identity.GoogleLinked
}

// BeginOperation flags a user mutation in progress until the returned func
// is called. Nested operations keep the flag until the last one ends.
func (m *Manager) BeginOperation(userID string) func() {
	session := m.get(userID)
	if session == nil {
		return func() {}
	}

	session.mu.Lock()
	session.operations++
	session.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			session.mu.Lock()
			session.operations--
			session.mu.Unlock()
		})
	}
}

func (m *Manager) Status(userID string) (models.SessionStatus, bool) {
	session := m.get(userID)
	if session == nil {
		return models.SessionStatus{UserID: userID, State: models.StateUnauthenticated}, false
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.status(), true
}

func (m *Manager) stop(session *ClientSession) {
	session.mu.Lock()
	session.ended = true
	m.scheduler.Remove(session.verifyEntry)
	m.scheduler.Remove(session.syncEntry)
	session.verifyEntry, session.syncEntry = 0, 0
	unsubscribe := session.unsubscribe
	session.unsubscribe = nil
	session.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Logout tears the session down. Every step runs even when an earlier one
// fails; the failures are joined.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	if session := m.remove(userID); session != nil {
		m.stop(session)
	}

	var errs []error
	if err := m.grants.Revoke(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("revoke grant: %w", err))
	}
	if _, err := m.provider.SetGoogleLinked(ctx, userID, false); err != nil && !errors.Is(err, models.ErrUserNotFound) {
		errs = append(errs, fmt.Errorf("clear linkage: %w", err))
	}
	if err := m.provider.SignOut(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("sign out: %w", err))
	}
	if err := cache.Purge(ctx, m.cache, userID); err != nil {
		errs = append(errs, fmt.Errorf("clear local cache: %w", err))
	}

	log.Printf("✓ Session ended for %s", userID)
	return errors.Join(errs...)
}

// Restore rebuilds a session after a relaunch. The cached identity is used
// right away and then reconciled with the provider.
func (m *Manager) Restore(ctx context.Context, userID string) error {
	session := &ClientSession{state: models.StateAuthenticating}

	var cached auth.Identity
	hasCached, err := cache.LoadIdentity(ctx, m.cache, userID, &cached)
	if err != nil {
		log.Printf("⚠️  Failed to read cached identity of %s: %v", userID, err)
	}
	if hasCached && cached.ID == userID {
		session.apply(cached)
		session.restored = true
	}

	session, created := m.register(userID, session)
	if !created {
		return nil
	}

	user, err := m.provider.Reload(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) {
		if logoutErr := m.Logout(ctx, userID); logoutErr != nil {
			log.Printf("⚠️  Logout of %s finished with errors: %v", userID, logoutErr)
		}
		return err
	}
	if err != nil {
		if !hasCached {
			m.remove(userID)
			return fmt.Errorf("failed to restore session: %w", err)
		}
		log.Printf("⚠️  Restored %s from cache, provider unavailable: %v", userID, err)
	} else {
		session.mu.Lock()
		session.apply(user.Identity())
		session.mu.Unlock()
		m.persistIdentity(ctx, session, user.Identity())
	}

	m.start(session, userID)
	log.Printf("✓ Session restored for %s", userID)
	return nil
}

// Ensure restores the session of userID unless it is already running.
func (m *Manager) Ensure(ctx context.Context, userID string) error {
	if m.get(userID) != nil {
		return nil
	}
	return m.Restore(ctx, userID)
}

// Shutdown stops every session without ending it at the provider.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*ClientSession, 0, len(m.sessions))
	for userID, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	for _, session := range sessions {
		m.stop(session)
	}

	<-m.scheduler.Stop().Done()
	m.background.Wait()
}
