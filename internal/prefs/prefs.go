// Package prefs is a small durable key-value store kept outside the entity
// store. Changes made by one process are observable by every other process
// sharing the same directory.
package prefs

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// KeyActiveWorkspace holds the identifier of the active workspace.
const KeyActiveWorkspace = "activeWorkspaceId"

// Store reads and writes string values by key.
type Store interface {
	// Get returns the stored value, or "" when the key is unset.
	Get(key string) (string, error)

	// Set durably stores value under key and notifies watchers.
	Set(key, value string) error

	// Watch delivers each new non-empty value written to key, by this or
	// any other process, until ctx is done. Values written before Watch
	// was called are not replayed.
	Watch(ctx context.Context, key string) (<-chan string, error)
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: invalid preference key %q", types.ErrValidation, key)
	}
	return nil
}
