package models

import "time"

// ConnectionStatus describes the health of the remote subscription.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// ConnectionState is reported by a subscription whenever its status changes.
type ConnectionState struct {
	Status ConnectionStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
	Since  time.Time        `json:"since"`
}

// CollectionView is a consistent, read-only copy of the synced collection.
type CollectionView struct {
	Records    []RequestRecord `json:"records"`
	IsLoading  bool            `json:"isLoading"`
	Connection ConnectionState `json:"connection"`
	// Revision increments on every applied snapshot.
	Revision uint64 `json:"revision"`
}

// DeleteResult is the outcome of a remote delete request.
type DeleteResult struct {
	ID string `json:"id"`
	// Existed is false when the key was already gone remotely.
	Existed bool  `json:"existed"`
	Err     error `json:"-"`
}

func (r DeleteResult) OK() bool {
	return r.Err == nil
}
