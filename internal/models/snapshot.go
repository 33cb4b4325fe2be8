package models

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

// SnapshotChild is one raw child of a remote collection.
type SnapshotChild struct {
	Key   string
	Value json.RawMessage
}

// Snapshot is a full point-in-time listing of a remote collection.
// Children keep the order the remote store yielded them in.
type Snapshot struct {
	Path     string
	Children []SnapshotChild
}

// ParseSnapshot builds a Snapshot from a JSON object keyed by child id,
// keeping document order. A JSON null is an empty collection.
func ParseSnapshot(path string, raw []byte) (Snapshot, error) {
	snap := Snapshot{Path: path}

	_, dataType, _, err := jsonparser.Get(raw)
	if err != nil {
		return snap, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	switch dataType {
	case jsonparser.Null:
		return snap, nil
	case jsonparser.Object:
	default:
		return snap, fmt.Errorf("failed to parse snapshot: expected object, got %s", dataType)
	}

	err = jsonparser.ObjectEach(raw, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		child := make(json.RawMessage, 0, len(value)+2)
		// String values come back without their quotes.
		if vt == jsonparser.String {
			child = append(child, '"')
			child = append(child, value...)
			child = append(child, '"')
		} else {
			child = append(child, value...)
		}
		snap.Children = append(snap.Children, SnapshotChild{Key: string(key), Value: child})
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return snap, nil
}
