package auth

import (
	"context"
	"testing"
	"time"

	"github.com/chainvault/chainvault/internal/common"
	"github.com/chainvault/chainvault/pkg/config"
	"github.com/chainvault/chainvault/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.User{}, &types.File{}, &types.APIKey{}))

	cfg := &config.AuthConfig{
		JWTSecret:     "test-secret",
		JWTExpiration: time.Hour,
		BCryptCost:    4,
	}
	return NewService(&common.Database{DB: db}, nil, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, &types.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.Password, "password never leaves the service")

	token, err := service.Login(ctx, &types.LoginRequest{
		Username: "alice",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.UserID)
	assert.NotEmpty(t, token.Token)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	req := &types.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "correct horse battery"}
	_, err := service.Register(ctx, req)
	require.NoError(t, err)

	_, err = service.Register(ctx, req)
	assert.Error(t, err)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, &types.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct horse battery",
	})
	require.NoError(t, err)

	_, err = service.Login(ctx, &types.LoginRequest{Username: "alice", Password: "wrong"})
	assert.Error(t, err)

	_, err = service.Login(ctx, &types.LoginRequest{Username: "nobody", Password: "wrong"})
	assert.Error(t, err)
}

func TestAPIKeyLifecycle(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, &types.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct horse battery",
	})
	require.NoError(t, err)

	credential, err := service.CreateAPIKey(ctx, user.ID, &types.APIKeyRequest{Name: "backup script"})
	require.NoError(t, err)
	assert.True(t, ValidateAPIKeyFormat(credential.Key))
	assert.Equal(t, "backup script", credential.Name)
	assert.Empty(t, credential.KeyHash, "hash never leaves the service")

	resolved, err := service.ValidateAPIKey(ctx, credential.Key)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Empty(t, resolved.Password)

	keys, err := service.ListAPIKeys(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt, "validation records usage")

	// A well-formed key that was never issued does not authenticate
	_, err = service.ValidateAPIKey(ctx, "vault-quantum-dragon-neural-A1B2C3D4E5F6A7B8C9D0E1F2-prime")
	assert.Error(t, err)

	_, err = service.ValidateAPIKey(ctx, "not-a-key")
	assert.Error(t, err)

	require.NoError(t, service.RevokeAPIKey(ctx, user.ID, credential.ID))
	_, err = service.ValidateAPIKey(ctx, credential.Key)
	assert.Error(t, err, "revoked key no longer authenticates")

	assert.Error(t, service.RevokeAPIKey(ctx, user.ID, credential.ID), "second revoke finds nothing")
}

func TestValidateToken(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, &types.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct horse battery",
	})
	require.NoError(t, err)

	token, err := service.Login(ctx, &types.LoginRequest{Username: "alice", Password: "correct horse battery"})
	require.NoError(t, err)

	user, err := service.ValidateToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, token.UserID, user.ID)

	_, err = service.ValidateToken(ctx, "not-a-token")
	assert.Error(t, err)
}
