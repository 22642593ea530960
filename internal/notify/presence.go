// Package notify delivers upload results to the owning client's live
// connection: a Redis-backed presence registry maps users to socket ids,
// and a websocket hub holds the connections themselves.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/chainvault/chainvault/internal/common"
	"github.com/google/uuid"
)

// presenceTTL bounds how long a stale socket registration can outlive its
// connection if the unregister was lost.
const presenceTTL = 24 * time.Hour

// Presence tracks which socket, if any, each user is currently connected on
type Presence struct {
	cache *common.Cache
}

// NewPresence creates a presence registry backed by the shared Redis cache
func NewPresence(cache *common.Cache) *Presence {
	return &Presence{cache: cache}
}

// Register records the socket a user is connected on, replacing any
// previous registration
func (p *Presence) Register(ctx context.Context, userID uuid.UUID, socketID string) error {
	return p.cache.SetString(ctx, presenceKey(userID), socketID, presenceTTL)
}

// Unregister clears a user's registration, but only if it still points at
// the given socket; a newer connection's registration is left alone
func (p *Presence) Unregister(ctx context.Context, userID uuid.UUID, socketID string) error {
	current, found, err := p.cache.GetString(ctx, presenceKey(userID))
	if err != nil {
		return err
	}
	if !found || current != socketID {
		return nil
	}
	return p.cache.Delete(ctx, presenceKey(userID))
}

// Lookup returns the socket id of a user's live connection, if any
func (p *Presence) Lookup(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	return p.cache.GetString(ctx, presenceKey(userID))
}

func presenceKey(userID uuid.UUID) string {
	return fmt.Sprintf("presence:%s", userID)
}
