package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/nurseaide/internal/models"
	"github.com/prudhvinik1/nurseaide/internal/repositories"
	"go.uber.org/zap"
)

var ErrStoreDisposed = errors.New("request store disposed")

const (
	DefaultRequestsPath  = "requests"
	defaultDeleteTimeout = 10 * time.Second
)

// RequestStore mirrors one remote request collection in memory.
//
// The collection only changes when a snapshot arrives from the active
// subscription; Delete goes to the remote store and the removal shows up in
// the next snapshot. Readers always get copies.
type RequestStore struct {
	repo          repositories.RequestRepository
	audit         repositories.DeletionAuditRepository
	logger        *zap.Logger
	path          string
	deleteTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	// lifecycleMu serializes Subscribe and Dispose.
	lifecycleMu sync.Mutex
	sub         repositories.Subscription

	mu          sync.RWMutex
	records     []models.RequestRecord
	isLoading   bool
	connection  models.ConnectionState
	revision    uint64
	generation  uint64
	disposed    bool
	watchers    map[uint64]chan models.CollectionView
	nextWatcher uint64

	deletes sync.WaitGroup
}

type RequestStoreOption func(*RequestStore)

func WithStoreLogger(logger *zap.Logger) RequestStoreOption {
	return func(s *RequestStore) { s.logger = logger }
}

func WithRequestsPath(path string) RequestStoreOption {
	return func(s *RequestStore) { s.path = path }
}

func WithDeleteTimeout(d time.Duration) RequestStoreOption {
	return func(s *RequestStore) { s.deleteTimeout = d }
}

// WithDeletionAudit records every delete outcome.
func WithDeletionAudit(audit repositories.DeletionAuditRepository) RequestStoreOption {
	return func(s *RequestStore) { s.audit = audit }
}

func NewRequestStore(repo repositories.RequestRepository, opts ...RequestStoreOption) *RequestStore {
	s := &RequestStore{
		repo:          repo,
		logger:        zap.NewNop(),
		path:          DefaultRequestsPath,
		deleteTimeout: defaultDeleteTimeout,
		isLoading:     true,
		connection:    models.ConnectionState{Status: models.StatusConnecting, Since: time.Now()},
		watchers:      make(map[uint64]chan models.CollectionView),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("path", s.path))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func (s *RequestStore) Path() string {
	return s.path
}

// Subscribe starts (or restarts) the remote subscription and returns without
// waiting for data. A restart drops the previous listener, puts the store
// back into the loading state and always yields a fresh snapshot.
func (s *RequestStore) Subscribe() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.isDisposed() {
		return ErrStoreDisposed
	}

	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			s.logger.Warn("failed to close previous subscription", zap.Error(err))
		}
		s.sub = nil
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.isLoading = true
	s.connection = models.ConnectionState{Status: models.StatusConnecting, Since: time.Now()}
	s.broadcastLocked()
	s.mu.Unlock()

	sub, err := s.repo.Subscribe(s.ctx, s.path, repositories.SubscriptionHandlers{
		OnSnapshot: func(snap models.Snapshot) { s.applySnapshot(gen, snap) },
		OnState:    func(state models.ConnectionState) { s.applyState(gen, state) },
	})
	if err != nil {
		s.applyState(gen, models.ConnectionState{
			Status: models.StatusDisconnected,
			Error:  err.Error(),
			Since:  time.Now(),
		})
		s.logger.Error("failed to subscribe to requests", zap.Error(err))
		return err
	}

	s.sub = sub
	s.logger.Debug("subscribed to requests", zap.Uint64("generation", gen))
	return nil
}

func (s *RequestStore) applySnapshot(gen uint64, snap models.Snapshot) {
	records := DecodeSnapshot(snap)
	if dropped := len(snap.Children) - len(records); dropped > 0 {
		s.logger.Debug("dropped malformed requests", zap.Int("dropped", dropped))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.disposed {
		return
	}

	s.records = records
	s.isLoading = false
	s.revision++
	if s.connection.Status != models.StatusConnected {
		s.connection = models.ConnectionState{Status: models.StatusConnected, Since: time.Now()}
	}
	s.broadcastLocked()
}

func (s *RequestStore) applyState(gen uint64, state models.ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.disposed {
		return
	}
	if state.Status == s.connection.Status && state.Error == s.connection.Error {
		return
	}

	s.connection = state
	s.broadcastLocked()
}

// Delete asks the remote store to remove id and returns immediately. The
// outcome arrives on the returned channel, which is buffered and closed
// after one result, so callers that don't care may drop it. The record
// stays in View until a snapshot without it arrives.
func (s *RequestStore) Delete(ctx context.Context, id string) <-chan models.DeleteResult {
	result := make(chan models.DeleteResult, 1)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		result <- models.DeleteResult{ID: id, Err: ErrStoreDisposed}
		close(result)
		return result
	}
	s.deletes.Add(1)
	s.mu.Unlock()

	// The request outlives the caller's context; only its values are kept.
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer s.deletes.Done()
		defer close(result)

		res := s.remove(ctx, id)
		s.recordDeletion(ctx, res)
		result <- res
	}()

	return result
}

func (s *RequestStore) remove(ctx context.Context, id string) models.DeleteResult {
	ctx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
	defer cancel()

	existed, err := s.repo.RemoveChild(ctx, s.path, id)
	if err != nil {
		s.logger.Error("failed to remove request", zap.String("request_id", id), zap.Error(err))
		return models.DeleteResult{ID: id, Err: err}
	}

	if existed {
		s.logger.Info("request removed", zap.String("request_id", id))
	} else {
		s.logger.Info("request already gone", zap.String("request_id", id))
	}
	return models.DeleteResult{ID: id, Existed: existed}
}

func (s *RequestStore) recordDeletion(ctx context.Context, res models.DeleteResult) {
	if s.audit == nil {
		return
	}

	entry := &models.DeletionAudit{
		Path:      s.path,
		RequestID: res.ID,
		Succeeded: res.OK(),
		Existed:   res.Existed,
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if caregiverID, ok := CaregiverFromContext(ctx); ok {
		entry.CaregiverID = &caregiverID
	}

	ctx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
	defer cancel()

	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to audit request deletion", zap.String("request_id", res.ID), zap.Error(err))
	}
}

// View returns a consistent copy of the current state.
func (s *RequestStore) View() models.CollectionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// Watch streams views, starting with the current one. Slow readers only see
// the latest view. The channel closes when ctx ends or the store is disposed.
func (s *RequestStore) Watch(ctx context.Context) <-chan models.CollectionView {
	ch := make(chan models.CollectionView, 1)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	ch <- s.viewLocked()
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}()

	return ch
}

// Dispose stops the subscription, waits for in-flight deletes and closes all
// watchers. It is safe to call more than once.
func (s *RequestStore) Dispose() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()

	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			s.logger.Warn("failed to close subscription", zap.Error(err))
		}
		s.sub = nil
	}
	s.cancel()
	s.deletes.Wait()

	s.mu.Lock()
	for id, w := range s.watchers {
		delete(s.watchers, id)
		close(w)
	}
	s.mu.Unlock()
}

func (s *RequestStore) isDisposed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disposed
}

func (s *RequestStore) viewLocked() models.CollectionView {
	records := slices.Clone(s.records)
	if records == nil {
		records = []models.RequestRecord{}
	}
	return models.CollectionView{
		Records:    records,
		IsLoading:  s.isLoading,
		Connection: s.connection,
		Revision:   s.revision,
	}
}

// broadcastLocked hands the current view to every watcher, replacing any
// view the watcher has not read yet.
func (s *RequestStore) broadcastLocked() {
	if len(s.watchers) == 0 {
		return
	}
	view := s.viewLocked()
	for _, w := range s.watchers {
		select {
		case <-w:
		default:
		}
		w <- view
	}
}

type caregiverKey struct{}

// ContextWithCaregiver tags ctx with the caregiver acting on the store.
func ContextWithCaregiver(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, caregiverKey{}, id)
}

func CaregiverFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(caregiverKey{}).(uuid.UUID)
	return id, ok
}
