package repository

import "context"

// SettingsRepository defines the interface for the small key-value config
// table, currently holding the alert webhook destination.
type SettingsRepository interface {
	// Get retrieves a value by key. Returns ErrNotFound when unset.
	Get(ctx context.Context, key string) (string, error)

	// Set upserts a value.
	Set(ctx context.Context, key, value string) error
}
