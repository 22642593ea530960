package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/chainvault/chainvault/internal/common"
	"github.com/chainvault/chainvault/pkg/config"
	"github.com/chainvault/chainvault/pkg/types"
	"github.com/chainvault/chainvault/pkg/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service handles authentication operations
type Service struct {
	db     *common.Database
	cache  *common.Cache
	config *config.AuthConfig
}

// NewService creates a new authentication service. The cache is optional;
// without it every token validation hits the database.
func NewService(db *common.Database, cache *common.Cache, config *config.AuthConfig) *Service {
	return &Service{
		db:     db,
		cache:  cache,
		config: config,
	}
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, req *types.RegisterRequest) (*types.User, error) {
	var existingUser types.User
	if err := s.db.WithContext(ctx).Where("username = ? OR email = ?", req.Username, req.Email).First(&existingUser).Error; err == nil {
		return nil, fmt.Errorf("user with username or email already exists")
	}

	hashedPassword, err := utils.HashPassword(req.Password, s.config.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashedPassword,
		IsActive: true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.Password = ""
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, req *types.LoginRequest) (*types.AuthToken, error) {
	var user types.User
	if err := s.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("invalid credentials")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("user account is disabled")
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, fmt.Errorf("invalid credentials")
	}

	token, err := utils.GenerateJWT(user.ID, s.config.JWTSecret, s.config.JWTExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &types.AuthToken{
		Token:     token,
		ExpiresAt: time.Now().Add(s.config.JWTExpiration),
		UserID:    user.ID,
	}, nil
}

// CreateAPIKey issues a new API key for a user. The plaintext key is
// returned exactly once; only its hash is stored.
func (s *Service) CreateAPIKey(ctx context.Context, userID uuid.UUID, req *types.APIKeyRequest) (*types.APIKeyCredential, error) {
	key, err := GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}

	record := &types.APIKey{
		UserID:  userID,
		Name:    req.Name,
		KeyHash: HashAPIKey(key),
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to store API key: %w", err)
	}

	log.Info().Str("user_id", userID.String()).Str("key_id", record.ID.String()).Msg("API key created")

	credential := &types.APIKeyCredential{APIKey: *record, Key: key}
	credential.KeyHash = ""
	return credential, nil
}

// ValidateAPIKey authenticates an API key and returns the owning user
func (s *Service) ValidateAPIKey(ctx context.Context, key string) (*types.User, error) {
	if !ValidateAPIKeyFormat(key) {
		return nil, fmt.Errorf("invalid API key")
	}

	var record types.APIKey
	if err := s.db.WithContext(ctx).Where("key_hash = ?", HashAPIKey(key)).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("invalid API key")
		}
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}

	var user types.User
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", record.UserID, true).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("invalid API key")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Password = ""

	// Usage tracking is best effort
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&record).Update("last_used_at", &now).Error; err != nil {
		log.Warn().Err(err).Str("key_id", record.ID.String()).Msg("failed to record API key usage")
	}

	return &user, nil
}

// ListAPIKeys returns a user's API keys, without hashes
func (s *Service) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]types.APIKey, error) {
	var keys []types.APIKey
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	for i := range keys {
		keys[i].KeyHash = ""
	}
	return keys, nil
}

// RevokeAPIKey deletes one of the user's API keys
func (s *Service) RevokeAPIKey(ctx context.Context, userID, keyID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", keyID, userID).Delete(&types.APIKey{})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke API key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("API key not found")
	}

	log.Info().Str("user_id", userID.String()).Str("key_id", keyID.String()).Msg("API key revoked")
	return nil
}

// ValidateToken validates a JWT token and returns the user
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*types.User, error) {
	userID, err := utils.ValidateJWT(tokenString, s.config.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	cacheKey := fmt.Sprintf("user:%s", userID)

	var user types.User
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &user); err == nil {
			return &user, nil
		}
	}

	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Password = ""

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, &user, 10*time.Minute); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to cache user")
		}
	}

	return &user, nil
}
