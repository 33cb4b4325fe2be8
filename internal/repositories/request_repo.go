package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/nurseaide/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	changesChannelSuffix = ":changes"
	defaultPingInterval  = 15 * time.Second
	defaultRetryDelay    = time.Second
)

// Each collection path is a hash of child id -> JSON child. Every mutation
// publishes the child id on "<path>:changes" in the same script so that
// subscribers never miss a write.
var (
	putChildScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('PUBLISH', ARGV[3], ARGV[1])
return 1
`)

	removeChildScript = redis.NewScript(`
local removed = redis.call('HDEL', KEYS[1], ARGV[1])
if removed > 0 then
  redis.call('PUBLISH', ARGV[2], ARGV[1])
end
return removed
`)
)

type RedisRequestRepository struct {
	client       *redis.Client
	logger       *zap.Logger
	pingInterval time.Duration
	retryDelay   time.Duration
}

type RequestRepositoryOption func(*RedisRequestRepository)

// WithPingInterval sets how long a quiet subscription waits before probing
// the connection.
func WithPingInterval(d time.Duration) RequestRepositoryOption {
	return func(r *RedisRequestRepository) { r.pingInterval = d }
}

func WithRetryDelay(d time.Duration) RequestRepositoryOption {
	return func(r *RedisRequestRepository) { r.retryDelay = d }
}

func WithRepositoryLogger(logger *zap.Logger) RequestRepositoryOption {
	return func(r *RedisRequestRepository) { r.logger = logger }
}

func NewRedisRequestRepository(client *redis.Client, opts ...RequestRepositoryOption) *RedisRequestRepository {
	r := &RedisRequestRepository{
		client:       client,
		logger:       zap.NewNop(),
		pingInterval: defaultPingInterval,
		retryDelay:   defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot reads every child under path, ordered by key.
func (r *RedisRequestRepository) Snapshot(ctx context.Context, path string) (models.Snapshot, error) {
	values, err := r.client.HGetAll(ctx, path).Result()
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	snap := models.Snapshot{Path: path, Children: make([]models.SnapshotChild, 0, len(keys))}
	for _, key := range keys {
		snap.Children = append(snap.Children, models.SnapshotChild{
			Key:   key,
			Value: json.RawMessage(values[key]),
		})
	}
	return snap, nil
}

// PutChild writes a new child under a time-ordered key and returns the key.
func (r *RedisRequestRepository) PutChild(ctx context.Context, path string, child models.RequestChild) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate child id: %w", err)
	}

	data, err := json.Marshal(child)
	if err != nil {
		return "", fmt.Errorf("failed to marshal child: %w", err)
	}

	key := id.String()
	err = putChildScript.Run(ctx, r.client, []string{path}, key, data, changesChannel(path)).Err()
	if err != nil {
		return "", fmt.Errorf("failed to put child: %w", err)
	}
	return key, nil
}

func (r *RedisRequestRepository) RemoveChild(ctx context.Context, path, id string) (bool, error) {
	removed, err := removeChildScript.Run(ctx, r.client, []string{path}, id, changesChannel(path)).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to remove child: %w", err)
	}
	return removed > 0, nil
}

// Subscribe starts a background receiver for path and returns immediately.
// Connection problems are reported through handlers.OnState; the receiver
// keeps retrying and re-reads a full snapshot once the connection is back.
func (r *RedisRequestRepository) Subscribe(ctx context.Context, path string, handlers SubscriptionHandlers) (Subscription, error) {
	if path == "" {
		return nil, errors.New("subscription path is required")
	}
	if handlers.OnSnapshot == nil {
		return nil, errors.New("snapshot handler is required")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{cancel: cancel, done: make(chan struct{})}

	go r.receive(subCtx, path, handlers, sub.done)

	return sub, nil
}

type redisSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *redisSubscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (r *RedisRequestRepository) receive(ctx context.Context, path string, handlers SubscriptionHandlers, done chan struct{}) {
	defer close(done)

	pubsub := r.client.Subscribe(ctx, changesChannel(path))
	defer pubsub.Close()
	// Reads only honour deadlines, so closing is what unblocks a receive.
	stop := context.AfterFunc(ctx, func() { _ = pubsub.Close() })
	defer stop()

	logger := r.logger.With(zap.String("path", path))
	var status models.ConnectionStatus
	setState := func(next models.ConnectionStatus, cause error) {
		if next == status {
			return
		}
		status = next
		state := models.ConnectionState{Status: next, Since: time.Now()}
		if cause != nil {
			state.Error = cause.Error()
		}
		if handlers.OnState != nil {
			handlers.OnState(state)
		}
	}
	setState(models.StatusConnecting, nil)

	// stale is set whenever changes may have been missed.
	stale := true
	for {
		msg, err := pubsub.ReceiveTimeout(ctx, r.pingInterval)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			if isTimeout(err) {
				if err = pubsub.Ping(ctx); err == nil {
					continue
				}
			}
			if status != models.StatusDisconnected {
				logger.Warn("request subscription lost", zap.Error(err))
			}
			setState(models.StatusDisconnected, err)
			stale = true
			if !sleepCtx(ctx, r.retryDelay) {
				return
			}
			continue
		}

		// Anything but a pong means (re)subscription or a change.
		if _, isPong := msg.(*redis.Pong); !isPong {
			stale = true
		}

		if !stale {
			continue
		}

		snap, err := r.Snapshot(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("failed to load request snapshot", zap.Error(err))
			setState(models.StatusDisconnected, err)
			if !sleepCtx(ctx, r.retryDelay) {
				return
			}
			continue
		}
		stale = false
		if status != models.StatusConnected {
			logger.Info("request subscription connected")
		}
		setState(models.StatusConnected, nil)
		handlers.OnSnapshot(snap)
	}
}

func changesChannel(path string) string {
	return path + changesChannelSuffix
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
