// Package memory provides a mutex-guarded in-process implementation of the
// persistence interfaces. It backs the memory storage driver and the use case
// tests, where a PostgreSQL instance is unavailable or unwanted.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/repository"
)

// Store holds all aggregates behind a single mutex. Uniqueness checks and
// inserts happen under the same lock, giving the same atomicity guarantees the
// SQL schema enforces with unique indexes.
type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*entity.User
	sessions map[uuid.UUID]*entity.Session
	socials  map[uuid.UUID]*entity.SocialConnection
}

// NewStore is the constructor for Store.
func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*entity.User),
		sessions: make(map[uuid.UUID]*entity.Session),
		socials:  make(map[uuid.UUID]*entity.SocialConnection),
	}
}

// NewUserRepository returns the store as a UserRepository.
func NewUserRepository(s *Store) repository.UserRepository { return s }

// NewSessionRepository returns a SessionRepository view over the store.
func NewSessionRepository(s *Store) repository.SessionRepository { return sessionRepo{s: s} }

// NewSocialConnectionRepository returns a SocialConnectionRepository view over the store.
func NewSocialConnectionRepository(s *Store) repository.SocialConnectionRepository {
	return socialRepo{s: s}
}

// NewTransactionManager returns the store as a TransactionManager.
func NewTransactionManager(s *Store) repository.TransactionManager { return s }

// --- UserRepository ---

// FindByID retrieves a single user by their unique ID.
func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(user), nil
}

// FindByEmail retrieves a single user by email, case-insensitively.
func (s *Store) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user := s.findByEmailLocked(email); user != nil {
		return cloneUser(user), nil
	}

	return nil, repository.ErrUserNotFound
}

// FindByUsername retrieves a single user by username, case-insensitively.
func (s *Store) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user := s.findByUsernameLocked(username); user != nil {
		return cloneUser(user), nil
	}

	return nil, repository.ErrUserNotFound
}

// FindByVerificationToken retrieves the user holding the given email
// verification token. Expiry is the caller's check.
func (s *Store) FindByVerificationToken(_ context.Context, token string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.VerificationToken != nil && *user.VerificationToken == token {
			return cloneUser(user), nil
		}
	}

	return nil, repository.ErrUserNotFound
}

// FindByResetToken retrieves the user holding the given password reset token,
// excluding expired tokens.
func (s *Store) FindByResetToken(_ context.Context, token string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	for _, user := range s.users {
		if user.ResetToken != nil && *user.ResetToken == token &&
			user.ResetExpires != nil && user.ResetExpires.After(now) {
			return cloneUser(user), nil
		}
	}

	return nil, repository.ErrUserNotFound
}

// Create persists a new user. Uniqueness of email and username is checked
// under the write lock.
func (s *Store) Create(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByEmailLocked(user.Email) != nil {
		return repository.ErrEmailExists
	}
	if s.findByUsernameLocked(user.Username) != nil {
		return repository.ErrUsernameExists
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = cloneUser(user)

	return nil
}

// Update persists the full current state of an existing user.
func (s *Store) Update(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}

	if other := s.findByEmailLocked(user.Email); other != nil && other.ID != user.ID {
		return repository.ErrEmailExists
	}
	if other := s.findByUsernameLocked(user.Username); other != nil && other.ID != user.ID {
		return repository.ErrUsernameExists
	}

	user.UpdatedAt = time.Now()
	s.users[user.ID] = cloneUser(user)

	return nil
}

func (s *Store) findByEmailLocked(email string) *entity.User {
	lowered := strings.ToLower(email)
	for _, user := range s.users {
		if strings.ToLower(user.Email) == lowered {
			return user
		}
	}

	return nil
}

func (s *Store) findByUsernameLocked(username string) *entity.User {
	lowered := strings.ToLower(username)
	for _, user := range s.users {
		if strings.ToLower(user.Username) == lowered {
			return user
		}
	}

	return nil
}

// --- SessionRepository ---

// sessionRepo is the SessionRepository view. It is a separate type because
// Store already carries the user repository's Create method.
type sessionRepo struct{ s *Store }

// Create persists a new session.
func (r sessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()
	r.s.sessions[session.ID] = cloneSession(session)

	return nil
}

// FindByToken retrieves the live session bearing the given token.
func (r sessionRepo) FindByToken(_ context.Context, token string) (*entity.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := time.Now()
	for _, session := range r.s.sessions {
		if session.Token == token && !session.Expired(now) {
			return cloneSession(session), nil
		}
	}

	return nil, repository.ErrSessionNotFound
}

// FindByUserID retrieves all live sessions for a user, newest first.
func (r sessionRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := time.Now()
	sessions := make([]*entity.Session, 0)
	for _, session := range r.s.sessions {
		if session.UserID == userID && !session.Expired(now) {
			sessions = append(sessions, cloneSession(session))
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

// DeleteByToken removes the session bearing the given token.
func (r sessionRepo) DeleteByToken(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, session := range r.s.sessions {
		if session.Token == token {
			delete(r.s.sessions, id)

			return nil
		}
	}

	return repository.ErrSessionNotFound
}

// DeleteByUserID removes every session for a user and reports how many existed.
func (r sessionRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for id, session := range r.s.sessions {
		if session.UserID == userID {
			delete(r.s.sessions, id)
			count++
		}
	}

	return count, nil
}

// DeleteExpired evicts expired sessions.
func (r sessionRepo) DeleteExpired(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	for id, session := range r.s.sessions {
		if session.Expired(now) {
			delete(r.s.sessions, id)
		}
	}

	return nil
}

// --- SocialConnectionRepository ---

type socialRepo struct{ s *Store }

// FindByUserAndProvider retrieves the connection linking a user to a provider.
func (r socialRepo) FindByUserAndProvider(_ context.Context, userID uuid.UUID, provider entity.SocialProvider) (*entity.SocialConnection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, conn := range r.s.socials {
		if conn.UserID == userID && conn.Provider == provider {
			return cloneSocialConnection(conn), nil
		}
	}

	return nil, repository.ErrConnectionNotFound
}

// FindByProviderUserID retrieves the connection for an external identity.
func (r socialRepo) FindByProviderUserID(_ context.Context, provider entity.SocialProvider, providerUserID string) (*entity.SocialConnection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, conn := range r.s.socials {
		if conn.Provider == provider && conn.ProviderUserID == providerUserID {
			return cloneSocialConnection(conn), nil
		}
	}

	return nil, repository.ErrConnectionNotFound
}

// FindByUserID retrieves all connections for a user.
func (r socialRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entity.SocialConnection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	conns := make([]*entity.SocialConnection, 0)
	for _, conn := range r.s.socials {
		if conn.UserID == userID {
			conns = append(conns, cloneSocialConnection(conn))
		}
	}

	sort.Slice(conns, func(i, j int) bool {
		return conns[i].CreatedAt.Before(conns[j].CreatedAt)
	})

	return conns, nil
}

// Create persists a new connection, enforcing both compound uniqueness constraints.
func (r socialRepo) Create(_ context.Context, conn *entity.SocialConnection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.socials {
		if existing.UserID == conn.UserID && existing.Provider == conn.Provider {
			return repository.ErrConnectionExists
		}
		if existing.Provider == conn.Provider && existing.ProviderUserID == conn.ProviderUserID {
			return repository.ErrConnectionExists
		}
	}

	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	now := time.Now()
	conn.CreatedAt = now
	conn.UpdatedAt = now
	r.s.socials[conn.ID] = cloneSocialConnection(conn)

	return nil
}

// Delete removes a connection by its ID.
func (r socialRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.socials[id]; !ok {
		return repository.ErrConnectionNotFound
	}
	delete(r.s.socials, id)

	return nil
}

// --- TransactionManager ---

// Execute runs the function against the store directly. The store has no
// transactional isolation; each repository operation is individually atomic
// under the mutex, matching what the memory driver promises.
func (s *Store) Execute(_ context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	return fn(factory{s: s})
}

type factory struct{ s *Store }

func (f factory) UserRepo() repository.UserRepository               { return f.s }
func (f factory) SessionRepo() repository.SessionRepository         { return sessionRepo{s: f.s} }
func (f factory) SocialRepo() repository.SocialConnectionRepository { return socialRepo{s: f.s} }

// --- Clone helpers ---
// Values handed out are copies so callers cannot mutate store state in place.

func cloneUser(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	cloned := *u
	cloned.PasswordHash = clonePtr(u.PasswordHash)
	cloned.FirstName = clonePtr(u.FirstName)
	cloned.LastName = clonePtr(u.LastName)
	cloned.VerificationToken = clonePtr(u.VerificationToken)
	cloned.VerificationExpires = clonePtr(u.VerificationExpires)
	cloned.ResetToken = clonePtr(u.ResetToken)
	cloned.ResetExpires = clonePtr(u.ResetExpires)
	cloned.TwoFactorSecret = clonePtr(u.TwoFactorSecret)
	cloned.TwoFactorLastStep = clonePtr(u.TwoFactorLastStep)
	cloned.ProfilePicture = clonePtr(u.ProfilePicture)

	return &cloned
}

func cloneSession(s *entity.Session) *entity.Session {
	if s == nil {
		return nil
	}
	cloned := *s

	return &cloned
}

func cloneSocialConnection(c *entity.SocialConnection) *entity.SocialConnection {
	if c == nil {
		return nil
	}
	cloned := *c
	if c.ProfileData != nil {
		cloned.ProfileData = append([]byte(nil), c.ProfileData...)
	}

	return &cloned
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p

	return &v
}
