// Package transfer is the HTTPS transfer adapter: it moves encrypted bytes
// in and out of blob storage and hands finished uploads to the
// coordinator. The FTPS and SFTP adapters speak to the same coordinator
// entry points from their own listeners.
package transfer

import (
	"context"
	"net/http"
	"strconv"

	"github.com/chainvault/chainvault/internal/auth"
	"github.com/chainvault/chainvault/internal/common"
	"github.com/chainvault/chainvault/internal/notify"
	"github.com/chainvault/chainvault/internal/storage"
	"github.com/chainvault/chainvault/internal/vault"
	"github.com/chainvault/chainvault/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Gateway holds the HTTP handlers for file transfer and the live
// notification socket
type Gateway struct {
	coordinator *vault.Coordinator
	blobs       storage.BlobStorage
	db          *common.Database
	hub         *notify.Hub
	presence    *notify.Presence
}

// NewGateway creates the transfer gateway
func NewGateway(coordinator *vault.Coordinator, blobs storage.BlobStorage, db *common.Database, hub *notify.Hub, presence *notify.Presence) *Gateway {
	return &Gateway{
		coordinator: coordinator,
		blobs:       blobs,
		db:          db,
		hub:         hub,
		presence:    presence,
	}
}

// RegisterRoutes mounts the authenticated transfer and notification routes
func (g *Gateway) RegisterRoutes(api *gin.RouterGroup, authMW gin.HandlerFunc) {
	files := api.Group("/files")
	files.Use(authMW)
	{
		files.PUT("/:id", g.handleUpload)
		files.GET("/:id", g.handleDownload)
		files.GET("/:id/pending", g.handlePendingStatus)
	}

	api.GET("/ws", authMW, g.handleSocket)
}

// handleUpload streams the request body into blob storage and hands the
// finished transfer to the coordinator. The response only acknowledges the
// byte transfer; the final disposition arrives over the notification
// socket once the upload is confirmed or reverted.
func (g *Gateway) handleUpload(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.APIResponse{Success: false, Error: "not authenticated"})
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "invalid file id"})
		return
	}

	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "missing file name"})
		return
	}

	originOwnerID := user.ID
	if raw := c.Query("origin_owner_id"); raw != "" {
		if originOwnerID, err = uuid.Parse(raw); err != nil {
			c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "invalid origin owner id"})
			return
		}
	}

	var parentFolderID uuid.UUID
	if raw := c.Query("parent_folder_id"); raw != "" {
		if parentFolderID, err = uuid.Parse(raw); err != nil {
			c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "invalid parent folder id"})
			return
		}
	}

	size, err := g.blobs.Store(c.Request.Context(), storage.FilePath(user.ID, fileID), c.Request.Body)
	if err != nil {
		log.Error().Err(err).Str("file_id", fileID.String()).Msg("failed to store uploaded bytes")
		c.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: "failed to store file"})
		return
	}

	info := types.UploadInfo{
		ID:             fileID,
		Name:           name,
		OwnerID:        user.ID,
		OriginOwnerID:  originOwnerID,
		Cipher:         c.Query("cipher"),
		SPK:            c.Query("spk"),
		ParentFolderID: parentFolderID,
		Size:           size,
		Description:    c.Query("description"),
	}

	g.coordinator.FinishUpload(c.Request.Context(), info)

	c.JSON(http.StatusAccepted, types.APIResponse{
		Success: true,
		Message: "upload received",
		Data:    gin.H{"file_id": fileID, "size": size},
	})
}

// handleDownload streams a committed file back to its owner
func (g *Gateway) handleDownload(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.APIResponse{Success: false, Error: "not authenticated"})
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "invalid file id"})
		return
	}

	var record types.File
	if err := g.db.WithContext(c.Request.Context()).
		Where("id = ? AND owner_id = ?", fileID, user.ID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, types.APIResponse{Success: false, Error: "file not found"})
			return
		}
		log.Error().Err(err).Str("file_id", fileID.String()).Msg("failed to load file record")
		c.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: "failed to load file"})
		return
	}

	content, err := g.blobs.Retrieve(c.Request.Context(), storage.FilePath(user.ID, fileID))
	if err != nil {
		log.Error().Err(err).Str("file_id", fileID.String()).Msg("failed to open stored file")
		c.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: "failed to read file"})
		return
	}
	defer content.Close()

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(record.Name))
	c.DataFromReader(http.StatusOK, record.Size, "application/octet-stream", content, nil)
}

// handlePendingStatus reports whether an upload is still awaiting
// confirmation; the non-HTTP adapters use the same coordinator query
// before accepting bytes
func (g *Gateway) handlePendingStatus(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "invalid file id"})
		return
	}

	c.JSON(http.StatusOK, types.APIResponse{
		Success: true,
		Data:    gin.H{"pending": g.coordinator.HasUpload(fileID)},
	})
}

// handleSocket upgrades to a websocket, registers the user's presence, and
// keeps the connection open until the client goes away
func (g *Gateway) handleSocket(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.APIResponse{Success: false, Error: "not authenticated"})
		return
	}

	socketID, conn, err := g.hub.Upgrade(c.Writer, c.Request)
	if err != nil {
		// Upgrade already wrote the handshake failure
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("websocket upgrade failed")
		return
	}

	// The connection outlives the HTTP request, so presence bookkeeping
	// cannot use the request context.
	ctx := context.Background()
	if err := g.presence.Register(ctx, user.ID, socketID); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to register presence")
		g.hub.Release(socketID)
		return
	}

	defer func() {
		if err := g.presence.Unregister(ctx, user.ID, socketID); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to unregister presence")
		}
		g.hub.Release(socketID)
	}()

	log.Info().Str("user_id", user.ID.String()).Str("socket_id", socketID).Msg("client connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
