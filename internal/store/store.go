// Package store persists the latest serialized snapshot of every match
// so sessions can be rehydrated after a crash or restart.
package store

import "context"

// SnapshotStore is the durable key-value contract. Put upserts; Get
// reports absence through the bool, not an error.
type SnapshotStore interface {
	Put(ctx context.Context, id string, payload []byte) error
	Get(ctx context.Context, id string) ([]byte, bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
}
