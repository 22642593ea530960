// Package chain holds the client side of the blockchain integration: the
// bridge the coordinator consumes and the codec between vault UUIDs and
// on-chain integer identifiers.
package chain

import (
	"context"
	"math/big"

	"github.com/google/uuid"
)

// VerificationStatus is the disposition reported back to the contract for
// a confirmed upload.
type VerificationStatus string

const (
	VerificationSuccess VerificationStatus = "success"
	VerificationFail    VerificationStatus = "fail"
)

// FileUploadedEvent mirrors the contract's FileUploaded event:
// FileUploaded(uint128 fileId, address uploader, uint256 hash,
// string metadata, uint timestamp). Delivery is at-least-once; duplicates,
// reordering, and identifiers with no local record are all possible.
type FileUploadedEvent struct {
	FileID    *big.Int
	Uploader  string
	Hash      *big.Int
	Metadata  string
	Timestamp uint64
}

// FileUploadedHandler consumes confirmation events from the chain
type FileUploadedHandler func(ctx context.Context, event FileUploadedEvent)

// Bridge is the coordinator's view of the blockchain
type Bridge interface {
	// BindFileUploaded registers the confirmation handler; called once at
	// startup before events start flowing.
	BindFileUploaded(handler FileUploadedHandler)

	// SetFileVerification reports the final local disposition of an upload
	// back to the contract.
	SetFileVerification(ctx context.Context, fileID uuid.UUID, uploader string, status VerificationStatus) error
}
