package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/repository"
)

func newTestUser(email, username string) *entity.User {
	hash := "$2a$10$fakehashfortesting"

	return &entity.User{
		Email:        email,
		Username:     username,
		PasswordHash: &hash,
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	user := newTestUser("alice@example.com", "alice")
	require.NoError(t, store.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	found, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", found.Email)

	_, err = store.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_CaseInsensitiveLookups(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Create(ctx, newTestUser("Alice@Example.com", "AliceW")))

	byEmail, err := store.FindByEmail(ctx, "alice@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice@Example.com", byEmail.Email)

	byUsername, err := store.FindByUsername(ctx, "alicew")
	require.NoError(t, err)
	assert.Equal(t, "AliceW", byUsername.Username)
}

func TestUserRepository_UniquenessConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Create(ctx, newTestUser("alice@example.com", "alice")))

	err := store.Create(ctx, newTestUser("ALICE@example.com", "other"))
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	err = store.Create(ctx, newTestUser("other@example.com", "Alice"))
	assert.ErrorIs(t, err, repository.ErrUsernameExists)
}

func TestUserRepository_UpdateConflictsExcludeSelf(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	user := newTestUser("alice@example.com", "alice")
	require.NoError(t, store.Create(ctx, user))

	// Re-saving the user with its own email and username is not a conflict.
	require.NoError(t, store.Update(ctx, user))

	other := newTestUser("bob@example.com", "bob")
	require.NoError(t, store.Create(ctx, other))

	other.Username = "alice"
	assert.ErrorIs(t, store.Update(ctx, other), repository.ErrUsernameExists)
}

func TestUserRepository_ResetTokenExcludesExpired(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	user := newTestUser("alice@example.com", "alice")
	token := "resettoken"
	expired := time.Now().Add(-time.Minute)
	user.ResetToken = &token
	user.ResetExpires = &expired
	require.NoError(t, store.Create(ctx, user))

	_, err := store.FindByResetToken(ctx, token)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	live := time.Now().Add(time.Hour)
	user.ResetExpires = &live
	require.NoError(t, store.Update(ctx, user))

	found, err := store.FindByResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestUserRepository_VerificationTokenIgnoresExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	user := newTestUser("alice@example.com", "alice")
	token := "verifytoken"
	expired := time.Now().Add(-time.Minute)
	user.VerificationToken = &token
	user.VerificationExpires = &expired
	require.NoError(t, store.Create(ctx, user))

	found, err := store.FindByVerificationToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestSessionRepository_ExpiredSessionsAreInvisible(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewSessionRepository(store)

	userID := uuid.New()
	live := &entity.Session{UserID: userID, Token: "live", ExpiresAt: time.Now().Add(time.Hour)}
	stale := &entity.Session{UserID: userID, Token: "stale", ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	_, err := repo.FindByToken(ctx, "stale")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	sessions, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "live", sessions[0].Token)
}

func TestSessionRepository_DeleteByUserIDReportsCount(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewSessionRepository(store)

	userID := uuid.New()
	for _, token := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, &entity.Session{
			UserID:    userID,
			Token:     token,
			ExpiresAt: time.Now().Add(time.Hour),
		}))
	}

	count, err := repo.DeleteByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repo.DeleteByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSessionRepository_FindByUserIDNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewSessionRepository(store)

	userID := uuid.New()
	first := &entity.Session{UserID: userID, Token: "first", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, first))

	second := &entity.Session{UserID: userID, Token: "second", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, second))
	// Force a strictly later creation time regardless of clock resolution.
	second.CreatedAt = first.CreatedAt.Add(time.Millisecond)
	store.sessions[second.ID].CreatedAt = second.CreatedAt

	sessions, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "second", sessions[0].Token)
}

func TestSocialConnectionRepository_CompoundUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewSocialConnectionRepository(store)

	userID := uuid.New()
	require.NoError(t, repo.Create(ctx, &entity.SocialConnection{
		UserID:         userID,
		Provider:       entity.ProviderGoogle,
		ProviderUserID: "google-123",
	}))

	// Same user, same provider.
	err := repo.Create(ctx, &entity.SocialConnection{
		UserID:         userID,
		Provider:       entity.ProviderGoogle,
		ProviderUserID: "google-456",
	})
	assert.ErrorIs(t, err, repository.ErrConnectionExists)

	// Different user, same provider account.
	err = repo.Create(ctx, &entity.SocialConnection{
		UserID:         uuid.New(),
		Provider:       entity.ProviderGoogle,
		ProviderUserID: "google-123",
	})
	assert.ErrorIs(t, err, repository.ErrConnectionExists)

	// Same user, different provider is fine.
	require.NoError(t, repo.Create(ctx, &entity.SocialConnection{
		UserID:         userID,
		Provider:       entity.ProviderGitHub,
		ProviderUserID: "github-123",
	}))
}

func TestStore_CopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	user := newTestUser("alice@example.com", "alice")
	require.NoError(t, store.Create(ctx, user))

	found, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	found.Email = "mutated@example.com"

	again, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", again.Email)
}

func TestTransactionManager_PassesThrough(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.Execute(ctx, func(f repository.RepositoryFactory) error {
		return f.UserRepo().Create(ctx, newTestUser("alice@example.com", "alice"))
	})
	require.NoError(t, err)

	_, err = store.FindByEmail(ctx, "alice@example.com")
	assert.NoError(t, err)
}
