package user

import (
	"context"
)

// Directory lists subscribers. Lookup failures are logged by the implementation
// and surface as an empty result.
type Directory interface {
	ListActive(ctx context.Context, frequency Frequency) []*User
}
