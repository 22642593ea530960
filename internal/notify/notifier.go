package notify

import (
	"context"

	"github.com/chainvault/chainvault/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UploadResultEvent is the event name clients listen on for upload
// dispositions.
const UploadResultEvent = "upload-file-res"

// Notifier is the coordinator's view of client notification. Delivery is
// best effort: a user without a live connection simply hears nothing.
type Notifier interface {
	NotifyUploadResult(ctx context.Context, userID uuid.UUID, result types.UploadResult)
}

// SocketNotifier resolves a user to their live socket via the presence
// registry and emits through the hub
type SocketNotifier struct {
	presence *Presence
	hub      *Hub
}

// NewSocketNotifier creates a notifier over the given presence registry and hub
func NewSocketNotifier(presence *Presence, hub *Hub) *SocketNotifier {
	return &SocketNotifier{presence: presence, hub: hub}
}

// NotifyUploadResult pushes an upload result to the owning user's live
// connection, if one exists. Failures are logged, never propagated.
func (n *SocketNotifier) NotifyUploadResult(ctx context.Context, userID uuid.UUID, result types.UploadResult) {
	socketID, found, err := n.presence.Lookup(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("presence lookup failed, dropping upload notification")
		return
	}
	if !found {
		log.Debug().Str("user_id", userID.String()).Str("file_id", result.FileID.String()).Msg("user has no live connection, dropping upload notification")
		return
	}

	if err := n.hub.Emit(socketID, UploadResultEvent, result); err != nil {
		log.Error().Err(err).Str("socket_id", socketID).Str("file_id", result.FileID.String()).Msg("failed to emit upload notification")
	}
}
