package transfer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chainvault/chainvault/internal/auth"
	"github.com/chainvault/chainvault/internal/chain"
	"github.com/chainvault/chainvault/internal/common"
	"github.com/chainvault/chainvault/internal/notify"
	"github.com/chainvault/chainvault/internal/storage"
	"github.com/chainvault/chainvault/internal/vault"
	"github.com/chainvault/chainvault/pkg/config"
	"github.com/chainvault/chainvault/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubBridge struct{}

func (stubBridge) BindFileUploaded(chain.FileUploadedHandler) {}
func (stubBridge) SetFileVerification(context.Context, uuid.UUID, string, chain.VerificationStatus) error {
	return nil
}

type recordingNotifier struct {
	mock.Mock
}

func (m *recordingNotifier) NotifyUploadResult(ctx context.Context, userID uuid.UUID, result types.UploadResult) {
	m.Called(ctx, userID, result)
}

type testGateway struct {
	router   *gin.Engine
	db       *common.Database
	notifier *recordingNotifier
	auth     *auth.Service
	token    *types.AuthToken
}

func setupGateway(t *testing.T) *testGateway {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.User{}, &types.File{}, &types.APIKey{}))
	database := &common.Database{DB: db}

	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	coordinator, err := vault.NewCoordinator(database, blobs, stubBridge{}, notifier, &config.UploadConfig{
		VerificationEnabled: false,
		ConfirmationTTL:     time.Minute,
	})
	require.NoError(t, err)

	authCfg := &config.AuthConfig{JWTSecret: "test-secret", JWTExpiration: time.Hour, BCryptCost: 4}
	authService := auth.NewService(database, nil, authCfg)

	ctx := context.Background()
	_, err = authService.Register(ctx, &types.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	token, err := authService.Login(ctx, &types.LoginRequest{
		Username: "alice",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	gateway := NewGateway(coordinator, blobs, database, notify.NewHub(), notify.NewPresence(nil))

	router := gin.New()
	api := router.Group("/api/v1")
	gateway.RegisterRoutes(api, auth.Middleware(authService))

	return &testGateway{
		router:   router,
		db:       database,
		notifier: notifier,
		auth:     authService,
		token:    token,
	}
}

func TestUploadCommitsAndDownloadRoundTrips(t *testing.T) {
	tg := setupGateway(t)
	fileID := uuid.New()
	tg.notifier.On("NotifyUploadResult", mock.Anything, tg.token.UserID, types.UploadResult{FileID: fileID}).Return()

	target := "/api/v1/files/" + fileID.String() + "?name=notes.txt.enc&cipher=aes-256-gcm"
	req := httptest.NewRequest(http.MethodPut, target, strings.NewReader("encrypted payload"))
	req.Header.Set("Authorization", "Bearer "+tg.token.Token)

	rec := httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var record types.File
	require.NoError(t, tg.db.First(&record, "id = ?", fileID).Error)
	assert.Equal(t, "notes.txt.enc", record.Name)
	assert.Equal(t, tg.token.UserID, record.OwnerID)
	assert.Equal(t, int64(len("encrypted payload")), record.Size)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/"+fileID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+tg.token.Token)
	rec = httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "encrypted payload", string(body))

	tg.notifier.AssertExpectations(t)
}

func TestUploadWithAPIKey(t *testing.T) {
	tg := setupGateway(t)
	fileID := uuid.New()
	tg.notifier.On("NotifyUploadResult", mock.Anything, tg.token.UserID, types.UploadResult{FileID: fileID}).Return()

	credential, err := tg.auth.CreateAPIKey(context.Background(), tg.token.UserID,
		&types.APIKeyRequest{Name: "backup script"})
	require.NoError(t, err)

	target := "/api/v1/files/" + fileID.String() + "?name=backup.tar.enc"
	req := httptest.NewRequest(http.MethodPut, target, strings.NewReader("encrypted payload"))
	req.Header.Set("X-API-Key", credential.Key)

	rec := httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var record types.File
	require.NoError(t, tg.db.First(&record, "id = ?", fileID).Error)
	assert.Equal(t, tg.token.UserID, record.OwnerID)

	// A well-formed key that was never issued is rejected
	req = httptest.NewRequest(http.MethodPut, target, strings.NewReader("encrypted payload"))
	req.Header.Set("X-API-Key", "vault-quantum-dragon-neural-A1B2C3D4E5F6A7B8C9D0E1F2-prime")
	rec = httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadRequiresAuthentication(t *testing.T) {
	tg := setupGateway(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/files/"+uuid.NewString()+"?name=x", strings.NewReader("data"))
	rec := httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadRejectsBadFileID(t *testing.T) {
	tg := setupGateway(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/files/not-a-uuid?name=x", strings.NewReader("data"))
	req.Header.Set("Authorization", "Bearer "+tg.token.Token)
	rec := httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadUnknownFileIs404(t *testing.T) {
	tg := setupGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+tg.token.Token)
	rec := httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingStatusFalseForUnknownUpload(t *testing.T) {
	tg := setupGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+uuid.NewString()+"/pending", nil)
	req.Header.Set("Authorization", "Bearer "+tg.token.Token)
	rec := httptest.NewRecorder()
	tg.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":false`)
}
