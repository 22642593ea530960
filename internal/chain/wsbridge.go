package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/chainvault/chainvault/pkg/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const maxReconnectDelay = 30 * time.Second

// GatewayBridge implements Bridge over a websocket connection to the chain
// gateway. The gateway watches the vault contract and relays its events as
// JSON frames; verification results travel back over the same connection.
type GatewayBridge struct {
	url         string
	contract    string
	dialTimeout time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers []FileUploadedHandler
}

// NewGatewayBridge creates a bridge for the configured gateway. No
// connection is made until Run is called.
func NewGatewayBridge(cfg *config.ChainConfig) *GatewayBridge {
	return &GatewayBridge{
		url:         cfg.GatewayURL,
		contract:    cfg.ContractAddress,
		dialTimeout: cfg.DialTimeout,
	}
}

// BindFileUploaded registers a confirmation event handler
func (b *GatewayBridge) BindFileUploaded(handler FileUploadedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Run connects to the gateway and pumps events until ctx is cancelled,
// reconnecting with capped exponential backoff after connection loss.
func (b *GatewayBridge) Run(ctx context.Context) error {
	delay := time.Second
	for {
		err := b.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Err(err).Str("gateway", b.url).Dur("retry_in", delay).Msg("chain gateway connection lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < maxReconnectDelay {
			delay *= 2
		}
	}
}

func (b *GatewayBridge) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: b.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial chain gateway: %w", err)
	}
	defer conn.Close()

	// Subscribe before the connection is published; once b.conn is visible,
	// SetFileVerification may write concurrently and all writes must go
	// through the mutex.
	sub := map[string]string{"type": "subscribe", "event": "FileUploaded", "contract": b.contract}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("failed to subscribe to contract events: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.conn = nil
		b.mu.Unlock()
	}()

	log.Info().Str("gateway", b.url).Str("contract", b.contract).Msg("subscribed to chain events")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read gateway frame: %w", err)
		}

		event, err := decodeEventFrame(data)
		if err != nil {
			log.Warn().Err(err).Msg("dropping undecodable gateway frame")
			continue
		}

		b.mu.Lock()
		handlers := make([]FileUploadedHandler, len(b.handlers))
		copy(handlers, b.handlers)
		b.mu.Unlock()

		for _, handler := range handlers {
			handler(ctx, event)
		}
	}
}

// SetFileVerification reports an upload's disposition back to the contract
func (b *GatewayBridge) SetFileVerification(ctx context.Context, fileID uuid.UUID, uploader string, status VerificationStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return fmt.Errorf("chain gateway not connected")
	}

	frame := map[string]string{
		"type":     "set_file_verification",
		"contract": b.contract,
		"fileId":   EncodeFileID(fileID).String(),
		"uploader": uploader,
		"status":   string(status),
	}
	if err := b.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to send verification result: %w", err)
	}
	return nil
}

// eventFrame is the gateway's wire representation of a contract event.
// Integer fields arrive as decimal strings because uint256 does not fit in
// a JSON number.
type eventFrame struct {
	Type      string `json:"type"`
	Event     string `json:"event"`
	FileID    string `json:"fileId"`
	Uploader  string `json:"uploader"`
	Hash      string `json:"hash"`
	Metadata  string `json:"metadata"`
	Timestamp uint64 `json:"timestamp"`
}

func decodeEventFrame(data []byte) (FileUploadedEvent, error) {
	var frame eventFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return FileUploadedEvent{}, fmt.Errorf("malformed gateway frame: %w", err)
	}
	if frame.Type != "event" || frame.Event != "FileUploaded" {
		return FileUploadedEvent{}, fmt.Errorf("unexpected gateway frame %q/%q", frame.Type, frame.Event)
	}

	fileID, ok := new(big.Int).SetString(frame.FileID, 10)
	if !ok {
		return FileUploadedEvent{}, fmt.Errorf("malformed fileId %q", frame.FileID)
	}
	hash, ok := new(big.Int).SetString(frame.Hash, 10)
	if !ok {
		return FileUploadedEvent{}, fmt.Errorf("malformed hash %q", frame.Hash)
	}

	return FileUploadedEvent{
		FileID:    fileID,
		Uploader:  frame.Uploader,
		Hash:      hash,
		Metadata:  frame.Metadata,
		Timestamp: frame.Timestamp,
	}, nil
}
