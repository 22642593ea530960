package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a vault account
type User struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID for the user ID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// APIKey is a stored credential for non-interactive transfer clients. The
// key itself is only ever shown once at creation; the row holds its hash.
type APIKey struct {
	ID         uuid.UUID  `json:"id" gorm:"primaryKey"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Name       string     `json:"name" gorm:"not null"`
	KeyHash    string     `json:"-" gorm:"uniqueIndex;not null"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	User       User       `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate generates a UUID for the API key ID
func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

// APIKeyRequest represents an API key creation request
type APIKeyRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// APIKeyCredential is the one-time creation response carrying the plaintext key
type APIKeyCredential struct {
	APIKey
	Key string `json:"key"`
}

// File is the persistent record of a committed upload. A row only exists
// once the upload has been finalized; pending uploads live in the
// coordinator's confirmation cache, never in the database.
type File struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	OwnerID        uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	OriginOwnerID  uuid.UUID `json:"origin_owner_id" gorm:"type:uuid"`
	Cipher         string    `json:"cipher"`
	SPK            string    `json:"spk"`
	ParentFolderID uuid.UUID `json:"parent_folder_id" gorm:"type:uuid;index"`
	Size           int64     `json:"size"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Owner          User      `json:"-" gorm:"foreignKey:OwnerID"`
}

// UploadInfo carries the metadata a transfer adapter hands to the upload
// coordinator once the bytes are durably written.
type UploadInfo struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	OwnerID        uuid.UUID `json:"user_id"`
	OriginOwnerID  uuid.UUID `json:"origin_owner_id"`
	Cipher         string    `json:"cipher"`
	SPK            string    `json:"spk"`
	ParentFolderID uuid.UUID `json:"parent_folder_id"`
	Size           int64     `json:"size"`
	Description    string    `json:"description"`
}

// Record converts the upload metadata into its database row
func (u UploadInfo) Record() *File {
	return &File{
		ID:             u.ID,
		Name:           u.Name,
		OwnerID:        u.OwnerID,
		OriginOwnerID:  u.OriginOwnerID,
		Cipher:         u.Cipher,
		SPK:            u.SPK,
		ParentFolderID: u.ParentFolderID,
		Size:           u.Size,
		Description:    u.Description,
	}
}

// UploadResult is the payload pushed to the owner's live connection when an
// upload is finally committed or reverted. ErrorMsg is empty on success.
type UploadResult struct {
	FileID   uuid.UUID `json:"fileId"`
	ErrorMsg string    `json:"errorMsg,omitempty"`
}

// AuthToken represents a JWT token
type AuthToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    uuid.UUID `json:"user_id"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
