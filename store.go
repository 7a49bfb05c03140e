package flow

import "context"

// StorageKey is the fixed key key/value backends keep the collection under.
const StorageKey = "flow-workflows"

// Store defines the contract for persisting the workflow collection.
//
// Load must treat missing or corrupt data as an empty collection and only
// fail on I/O errors. Save replaces everything that was stored before.
type Store interface {
	Load(ctx context.Context) (Collection, error)
	Save(ctx context.Context, c Collection) error
}
