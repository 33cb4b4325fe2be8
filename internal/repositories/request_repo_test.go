package repositories

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prudhvinik1/nurseaide/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "requests"

func setupTestRequestRepo(t *testing.T) (*miniredis.Miniredis, *redis.Client, *RedisRequestRepository) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { client.Close() })

	repo := NewRedisRequestRepository(client,
		WithPingInterval(time.Minute),
		WithRetryDelay(20*time.Millisecond),
	)
	return mr, client, repo
}

// eventRecorder collects subscription callbacks
type eventRecorder struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
	states    []models.ConnectionStatus
}

func (e *eventRecorder) handlers() SubscriptionHandlers {
	return SubscriptionHandlers{
		OnSnapshot: func(s models.Snapshot) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.snapshots = append(e.snapshots, s)
		},
		OnState: func(s models.ConnectionState) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.states = append(e.states, s.Status)
		},
	}
}

func (e *eventRecorder) lastKeys() ([]string, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.snapshots) == 0 {
		return nil, 0
	}
	last := e.snapshots[len(e.snapshots)-1]
	keys := make([]string, 0, len(last.Children))
	for _, c := range last.Children {
		keys = append(keys, c.Key)
	}
	return keys, len(e.snapshots)
}

func (e *eventRecorder) lastState() models.ConnectionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.states) == 0 {
		return ""
	}
	return e.states[len(e.states)-1]
}

func callButton(patient string) models.RequestChild {
	return models.RequestChild{
		Type:       "Call Button",
		Timestamp:  float64(time.Now().UnixMilli()),
		PatientID:  patient,
		RoomNumber: "101",
	}
}

func TestRequestRepository_PutAndSnapshot(t *testing.T) {
	_, _, repo := setupTestRequestRepo(t)
	ctx := context.Background()

	first, err := repo.PutChild(ctx, testPath, callButton("P1"))
	require.NoError(t, err)
	second, err := repo.PutChild(ctx, testPath, callButton("P2"))
	require.NoError(t, err)

	snap, err := repo.Snapshot(ctx, testPath)

	require.NoError(t, err)
	require.Len(t, snap.Children, 2)
	// Keys are time ordered, so creation order is kept
	assert.Equal(t, first, snap.Children[0].Key)
	assert.Equal(t, second, snap.Children[1].Key)

	var stored models.RequestChild
	require.NoError(t, json.Unmarshal(snap.Children[0].Value, &stored))
	assert.Equal(t, "P1", stored.PatientID)
	assert.Equal(t, "101", stored.RoomNumber)
	assert.Nil(t, stored.DiscomfortLevel)
}

func TestRequestRepository_RemoveChild(t *testing.T) {
	mr, _, repo := setupTestRequestRepo(t)
	ctx := context.Background()

	id, err := repo.PutChild(ctx, testPath, callButton("P1"))
	require.NoError(t, err)

	existed, err := repo.RemoveChild(ctx, testPath, id)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.False(t, mr.Exists(testPath), "last child removed empties the hash")

	existed, err = repo.RemoveChild(ctx, testPath, id)
	require.NoError(t, err)
	assert.False(t, existed, "removing a missing key is not an error")
}

func TestRequestRepository_SubscribeDeliversSnapshots(t *testing.T) {
	_, client, repo := setupTestRequestRepo(t)
	ctx := context.Background()

	existing, err := repo.PutChild(ctx, testPath, callButton("P1"))
	require.NoError(t, err)

	rec := &eventRecorder{}
	sub, err := repo.Subscribe(ctx, testPath, rec.handlers())
	require.NoError(t, err)
	defer sub.Close()

	// Initial snapshot
	require.Eventually(t, func() bool {
		keys, _ := rec.lastKeys()
		return len(keys) == 1 && keys[0] == existing
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, models.StatusConnected, rec.lastState())

	// A new child triggers a full snapshot
	added, err := repo.PutChild(ctx, testPath, callButton("P2"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		keys, _ := rec.lastKeys()
		return len(keys) == 2 && keys[1] == added
	}, 2*time.Second, 10*time.Millisecond)

	// Raw writers that publish are picked up too, malformed or not
	require.NoError(t, client.HSet(ctx, testPath, "zz-raw", `{"type":1}`).Err())
	require.NoError(t, client.Publish(ctx, testPath+changesChannelSuffix, "zz-raw").Err())
	require.Eventually(t, func() bool {
		keys, _ := rec.lastKeys()
		return len(keys) == 3
	}, 2*time.Second, 10*time.Millisecond)

	// Removal triggers a snapshot without the child
	_, err = repo.RemoveChild(ctx, testPath, existing)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		keys, _ := rec.lastKeys()
		return len(keys) == 2 && keys[0] == added
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRequestRepository_CloseStopsDelivery(t *testing.T) {
	_, _, repo := setupTestRequestRepo(t)
	ctx := context.Background()

	rec := &eventRecorder{}
	sub, err := repo.Subscribe(ctx, testPath, rec.handlers())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, n := rec.lastKeys()
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sub.Close())

	_, err = repo.PutChild(ctx, testPath, callButton("P1"))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	_, n := rec.lastKeys()
	assert.Equal(t, 1, n, "no snapshot after Close")
}

// TestRequestRepository_Reconnect checks connectivity loss is reported and recovered
func TestRequestRepository_Reconnect(t *testing.T) {
	mr, _, repo := setupTestRequestRepo(t)
	ctx := context.Background()

	rec := &eventRecorder{}
	sub, err := repo.Subscribe(ctx, testPath, rec.handlers())
	require.NoError(t, err)
	defer sub.Close()
	require.Eventually(t, func() bool {
		return rec.lastState() == models.StatusConnected
	}, 2*time.Second, 10*time.Millisecond)

	// Written without a change notification; only a full reload can see it
	mr.HSet(testPath, "after-restart", `{"type":"Water","timestamp":1,"patientID":"P","roomNumber":"R"}`)

	mr.Close()
	require.Eventually(t, func() bool {
		return rec.lastState() == models.StatusDisconnected
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, mr.Restart())

	// Recovery re-reads the full collection
	require.Eventually(t, func() bool {
		keys, _ := rec.lastKeys()
		return rec.lastState() == models.StatusConnected && len(keys) == 1 && keys[0] == "after-restart"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRequestRepository_SubscribeValidation(t *testing.T) {
	_, _, repo := setupTestRequestRepo(t)

	_, err := repo.Subscribe(context.Background(), "", SubscriptionHandlers{OnSnapshot: func(models.Snapshot) {}})
	assert.Error(t, err)

	_, err = repo.Subscribe(context.Background(), testPath, SubscriptionHandlers{})
	assert.Error(t, err)
}
