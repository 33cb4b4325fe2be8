package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/prudhvinik1/nurseaide/internal/models"
)

// SubscriptionHandlers receive events from a single subscription. Calls are
// serialized: a handler is never invoked concurrently with itself or the other.
type SubscriptionHandlers struct {
	OnSnapshot func(models.Snapshot)
	OnState    func(models.ConnectionState)
}

type Subscription interface {
	// Close stops delivery. No handler runs after Close returns.
	Close() error
}

// RequestRepository is the client for the remote realtime request collection.
type RequestRepository interface {
	// Subscribe delivers a full snapshot of path on start and after every
	// change, until ctx is cancelled or the subscription is closed.
	Subscribe(ctx context.Context, path string, handlers SubscriptionHandlers) (Subscription, error)
	Snapshot(ctx context.Context, path string) (models.Snapshot, error)
	PutChild(ctx context.Context, path string, child models.RequestChild) (string, error)
	// RemoveChild reports whether the key existed. Removing a missing key is
	// not an error.
	RemoveChild(ctx context.Context, path, id string) (bool, error)
}

type CaregiverRepository interface {
	Create(ctx context.Context, caregiver *models.Caregiver) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Caregiver, error)
	GetByEmail(ctx context.Context, email string) (*models.Caregiver, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

type DeletionAuditRepository interface {
	Record(ctx context.Context, entry *models.DeletionAudit) error
	ListByRequestID(ctx context.Context, path, requestID string) ([]*models.DeletionAudit, error)
}
