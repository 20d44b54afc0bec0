package tokenstore

import (
	"context"
	"time"
)

// State is the persisted bearer token state.
type State struct {
	AccessToken    string
	ExpiresAt      time.Time
	KeyFingerprint string
}

// Empty reports whether the state holds no token.
func (s State) Empty() bool {
	return s.AccessToken == ""
}

// Store persists token state between process runs.
// Implementations are not expected to coordinate writers; the last Save wins.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	Clear(ctx context.Context) error
}
