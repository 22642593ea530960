// Package vault implements upload finalization: reconciling a completed
// byte transfer with its asynchronous on-chain confirmation, and undoing
// the upload's partial effects when confirmation never arrives or
// disagrees with the locally observed data.
package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/chainvault/chainvault/internal/chain"
	"github.com/chainvault/chainvault/internal/common"
	"github.com/chainvault/chainvault/internal/notify"
	"github.com/chainvault/chainvault/internal/storage"
	"github.com/chainvault/chainvault/internal/ttlcache"
	"github.com/chainvault/chainvault/pkg/config"
	"github.com/chainvault/chainvault/pkg/types"
	"github.com/chainvault/chainvault/pkg/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Revert reasons, distinguishable in logs and in the client-facing
// notification.
const (
	reasonTimeout      = "confirmation not received in time"
	reasonHashMismatch = "hash mismatch"
	reasonInternal     = "internal error during upload finalization"
)

// pendingUpload is what waits in the confirmation cache between the end of
// the byte transfer and the on-chain confirmation. A nil contentHash means
// hashing the stored bytes failed; the upload is still tracked so it gets
// reverted explicitly instead of silently lost.
type pendingUpload struct {
	info        types.UploadInfo
	contentHash *big.Int
}

// Coordinator reconciles finished transfers with on-chain confirmations.
// Exactly one of commit and revert runs for any file id: whichever of the
// confirmation handler and the expiry sweep pops the pending record first
// proceeds, and the loser finds nothing.
type Coordinator struct {
	db       *common.Database
	blobs    storage.BlobStorage
	bridge   chain.Bridge
	notifier notify.Notifier

	pending             *ttlcache.Cache[uuid.UUID, pendingUpload]
	verificationEnabled bool
}

// NewCoordinator wires a coordinator to its collaborators, registers its
// expiry listener, and binds its confirmation handler to the bridge.
func NewCoordinator(db *common.Database, blobs storage.BlobStorage, bridge chain.Bridge, notifier notify.Notifier, cfg *config.UploadConfig) (*Coordinator, error) {
	pending, err := ttlcache.New[uuid.UUID, pendingUpload](cfg.ConfirmationTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create confirmation cache: %w", err)
	}

	c := &Coordinator{
		db:                  db,
		blobs:               blobs,
		bridge:              bridge,
		notifier:            notifier,
		pending:             pending,
		verificationEnabled: cfg.VerificationEnabled,
	}

	c.pending.OnExpired(c.onConfirmationTimeout)
	c.bridge.BindFileUploaded(c.HandleFileUploaded)
	return c, nil
}

// FinishUpload is called by a transfer adapter once the upload's bytes are
// durably written under info.ID. With verification disabled the upload is
// committed on the spot; otherwise it is parked in the confirmation cache
// until the chain confirms it or the TTL elapses. By the time this runs
// the remote peer has already been told the transfer succeeded, so no
// error escapes to the adapter; failure surfaces as a revert plus a client
// notification.
func (c *Coordinator) FinishUpload(ctx context.Context, info types.UploadInfo) {
	if !c.verificationEnabled {
		if err := c.persistAndNotify(ctx, info); err != nil {
			log.Error().Err(err).Str("file_id", info.ID.String()).Msg("failed to commit unverified upload")
			c.revert(ctx, info.OwnerID, info.ID, reasonInternal)
			return
		}
		log.Info().Str("file_id", info.ID.String()).Str("user_id", info.OwnerID.String()).Msg("upload committed without verification")
		return
	}

	contentHash, err := c.hashStoredFile(ctx, info)
	if err != nil {
		// Track the upload anyway; with no hash it can never match a
		// confirmation, so it ends in an explicit revert rather than
		// disappearing.
		log.Warn().Err(err).Str("file_id", info.ID.String()).Msg("failed to hash stored file, tracking upload without content hash")
		contentHash = nil
	}

	c.pending.Set(info.ID, pendingUpload{info: info, contentHash: contentHash})
	log.Info().
		Str("file_id", info.ID.String()).
		Str("user_id", info.OwnerID.String()).
		Str("content_hash", hashText(contentHash)).
		Msg("upload parked awaiting on-chain confirmation")
}

// HasUpload reports whether a pending upload exists for fileID. The SFTP
// and FTPS adapters consult this before opening a write handle.
func (c *Coordinator) HasUpload(fileID uuid.UUID) bool {
	return c.pending.Has(fileID)
}

// PendingCount returns the number of uploads awaiting confirmation
func (c *Coordinator) PendingCount() int {
	return c.pending.Len()
}

// HandleFileUploaded consumes a FileUploaded confirmation event. Delivery
// is at-least-once: duplicates, reordering, and events for unknown file
// ids all resolve to logged no-ops.
func (c *Coordinator) HandleFileUploaded(ctx context.Context, event chain.FileUploadedEvent) {
	fileID, err := chain.DecodeFileID(event.FileID)
	if err != nil {
		log.Warn().Err(err).Str("raw_file_id", event.FileID.String()).Msg("dropping confirmation event with undecodable file id")
		return
	}

	pending, ok := c.pending.Pop(fileID)
	if !ok {
		log.Debug().Str("file_id", fileID.String()).Msg("no pending upload for confirmation event")
		return
	}

	if pending.contentHash != nil && event.Hash != nil && pending.contentHash.Cmp(event.Hash) == 0 {
		if err := c.commitVerified(ctx, pending.info, event.Uploader); err != nil {
			log.Error().Err(err).Str("file_id", fileID.String()).Msg("failed to commit verified upload")
			c.revert(ctx, pending.info.OwnerID, fileID, reasonInternal)
		}
		return
	}

	log.Warn().
		Str("file_id", fileID.String()).
		Str("local_hash", hashText(pending.contentHash)).
		Str("chain_hash", hashText(event.Hash)).
		Msg("on-chain hash disagrees with stored content")

	if err := c.bridge.SetFileVerification(ctx, fileID, event.Uploader, chain.VerificationFail); err != nil {
		log.Error().Err(err).Str("file_id", fileID.String()).Msg("failed to report failed verification to chain")
	}
	c.revert(ctx, pending.info.OwnerID, fileID, reasonHashMismatch)
}

// onConfirmationTimeout runs when a pending upload is evicted without ever
// being popped by the confirmation handler.
func (c *Coordinator) onConfirmationTimeout(fileID uuid.UUID, pending pendingUpload) {
	log.Warn().Str("file_id", fileID.String()).Str("user_id", pending.info.OwnerID.String()).Msg("upload confirmation timed out")
	c.revert(context.Background(), pending.info.OwnerID, fileID, reasonTimeout)
}

// commitVerified persists the file record, reports success to the chain,
// and notifies the owner.
func (c *Coordinator) commitVerified(ctx context.Context, info types.UploadInfo, uploader string) error {
	if err := c.db.WithContext(ctx).Create(info.Record()).Error; err != nil {
		return fmt.Errorf("failed to persist file record: %w", err)
	}
	if err := c.bridge.SetFileVerification(ctx, info.ID, uploader, chain.VerificationSuccess); err != nil {
		return fmt.Errorf("failed to report verification to chain: %w", err)
	}
	c.notifier.NotifyUploadResult(ctx, info.OwnerID, types.UploadResult{FileID: info.ID})
	log.Info().Str("file_id", info.ID.String()).Str("user_id", info.OwnerID.String()).Msg("upload verified and committed")
	return nil
}

// persistAndNotify is the commit path for uploads that bypass verification
func (c *Coordinator) persistAndNotify(ctx context.Context, info types.UploadInfo) error {
	if err := c.db.WithContext(ctx).Create(info.Record()).Error; err != nil {
		return fmt.Errorf("failed to persist file record: %w", err)
	}
	c.notifier.NotifyUploadResult(ctx, info.OwnerID, types.UploadResult{FileID: info.ID})
	return nil
}

// revert is the shared compensation path: best-effort removal of the
// database row and the stored bytes, then a failure notification to the
// owner. Every sub-step is independently best effort; revert itself never
// fails.
func (c *Coordinator) revert(ctx context.Context, userID, fileID uuid.UUID, reason string) {
	result := c.db.WithContext(ctx).Where("id = ? AND owner_id = ?", fileID, userID).Delete(&types.File{})
	if result.Error != nil {
		log.Error().Err(result.Error).Str("file_id", fileID.String()).Msg("failed to delete file record during revert")
	}

	if err := c.blobs.Delete(ctx, storage.FilePath(userID, fileID)); err != nil {
		log.Error().Err(err).Str("file_id", fileID.String()).Msg("failed to delete stored bytes during revert")
	}

	c.notifier.NotifyUploadResult(ctx, userID, types.UploadResult{FileID: fileID, ErrorMsg: reason})

	log.Warn().
		Str("file_id", fileID.String()).
		Str("user_id", userID.String()).
		Str("reason", reason).
		Msg("upload reverted")
}

// hashStoredFile streams the stored ciphertext through SHA-256 and returns
// the digest as the unsigned integer the on-chain hash is compared against.
func (c *Coordinator) hashStoredFile(ctx context.Context, info types.UploadInfo) (*big.Int, error) {
	content, err := c.blobs.Retrieve(ctx, storage.FilePath(info.OwnerID, info.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	defer content.Close()

	digest, err := utils.ComputeSHA256FromReader(content)
	if err != nil {
		return nil, fmt.Errorf("failed to hash stored file: %w", err)
	}

	hash, ok := new(big.Int).SetString(digest, 16)
	if !ok {
		return nil, fmt.Errorf("failed to parse digest %q", digest)
	}
	return hash, nil
}

// hashText renders a content hash for logs as 0x-prefixed hex
func hashText(hash *big.Int) string {
	if hash == nil {
		return "<unavailable>"
	}
	return "0x" + hash.Text(16)
}
