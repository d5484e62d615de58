package ledger

import (
	"errors"
	"fmt"

	"github.com/calmzest/waterdash/internal/domain"
)

// ErrNotFound is returned when an update or delete matched zero ledger rows.
var ErrNotFound = errors.New("no matching transactions")

// BackendUnavailableError indicates the underlying row store could not be
// reached. It is fatal for the current request; the core never retries.
type BackendUnavailableError struct {
	Op  string
	Err error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("ledger backend unavailable during %s: %v", e.Op, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// SchemaError indicates per-store partition or header bootstrap failed.
type SchemaError struct {
	Store domain.Store
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema bootstrap failed for store %q: %v", e.Store, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
