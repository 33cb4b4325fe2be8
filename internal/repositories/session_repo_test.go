package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prudhvinik1/nurseaide/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSessionRepo(t *testing.T) (*miniredis.Miniredis, *RedisSessionRepository) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisSessionRepository(client)
}

// TestSessionRepository_Create tests creating a session with TTL
func TestSessionRepository_Create(t *testing.T) {
	mr, repo := setupTestSessionRepo(t)
	ctx := context.Background()

	caregiverID := uuid.New()
	session := &models.Session{
		ID:          "session-123",
		CaregiverID: caregiverID,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		CreatedAt:   time.Now(),
	}

	err := repo.Create(ctx, session)

	require.NoError(t, err)
	retrieved, err := repo.GetByID(ctx, "session-123")
	require.NoError(t, err)
	assert.Equal(t, caregiverID, retrieved.CaregiverID)
	assert.Greater(t, mr.TTL("session:session-123"), 23*time.Hour)
}

// TestSessionRepository_Expiration tests that sessions disappear with their TTL
func TestSessionRepository_Expiration(t *testing.T) {
	mr, repo := setupTestSessionRepo(t)
	ctx := context.Background()

	err := repo.Create(ctx, &models.Session{
		ID:          "short-session",
		CaregiverID: uuid.New(),
		ExpiresAt:   time.Now().Add(time.Minute),
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = repo.GetByID(ctx, "short-session")
	assert.ErrorIs(t, err, ErrNotFound, "Expired session should not exist")
}

func TestSessionRepository_CreateExpired(t *testing.T) {
	_, repo := setupTestSessionRepo(t)

	err := repo.Create(context.Background(), &models.Session{
		ID:        "old",
		ExpiresAt: time.Now().Add(-time.Second),
	})

	assert.Error(t, err)
}

// TestSessionRepository_Delete tests removing a session
func TestSessionRepository_Delete(t *testing.T) {
	_, repo := setupTestSessionRepo(t)
	ctx := context.Background()

	err := repo.Create(ctx, &models.Session{
		ID:          "session-to-delete",
		CaregiverID: uuid.New(),
		ExpiresAt:   time.Now().Add(time.Hour),
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)

	err = repo.Delete(ctx, "session-to-delete")

	require.NoError(t, err)
	_, err = repo.GetByID(ctx, "session-to-delete")
	assert.ErrorIs(t, err, ErrNotFound, "Session should be deleted")
	assert.ErrorIs(t, repo.Delete(ctx, "session-to-delete"), ErrNotFound)
}
