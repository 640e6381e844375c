package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ResultStream maintains a WebSocket connection to the results source and
// pushes finished-contest notifications to registered handlers. It is an
// optional fast path; the settlement scheduler still polls as a safety net.
type ResultStream struct {
	streamURL       string
	apiKey          string
	reconnectConfig ReconnectConfig
	logger          *logrus.Logger

	mu              sync.RWMutex
	conn            *websocket.Conn
	isConnected     bool
	handlers        []ResultHandler
	lastMessageTime time.Time
}

// ReconnectConfig controls reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// ResultHandler is called when a contest finishes
type ResultHandler func(contestID string) error

// resultEvent is the stream's wire format
type resultEvent struct {
	Op        string `json:"op"`
	ContestID string `json:"contest_id,omitempty"`
	Final     bool   `json:"final,omitempty"`
}

// NewResultStream creates a new stream client
func NewResultStream(streamURL, apiKey string, logger *logrus.Logger) *ResultStream {
	return &ResultStream{
		streamURL:       streamURL,
		apiKey:          apiKey,
		reconnectConfig: DefaultReconnectConfig(),
		handlers:        make([]ResultHandler, 0),
		logger:          logger,
	}
}

// Connect establishes the WebSocket connection and starts the read loop
func (s *ResultStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return fmt.Errorf("already connected")
	}

	s.logger.WithField("url", s.streamURL).Info("Connecting to results stream")

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}

	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()

	if s.apiKey != "" {
		auth := map[string]interface{}{
			"op":      "auth",
			"api_key": s.apiKey,
		}
		if err := conn.WriteJSON(auth); err != nil {
			s.isConnected = false
			conn.Close()
			return fmt.Errorf("failed to authenticate stream: %w", err)
		}
	}

	go s.readMessages()

	return nil
}

// Run keeps the stream connected until the context is cancelled, backing off
// between reconnect attempts.
func (s *ResultStream) Run(ctx context.Context) error {
	backoff := s.reconnectConfig.InitialBackoff
	retries := 0

	for {
		if err := s.Connect(ctx); err != nil {
			retries++
			if retries > s.reconnectConfig.MaxRetries {
				return fmt.Errorf("stream reconnect attempts exhausted: %w", err)
			}
			s.logger.WithFields(logrus.Fields{
				"attempt": retries,
				"backoff": backoff,
			}).Warnf("Stream connect failed: %v", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * s.reconnectConfig.BackoffMultiplier)
			if backoff > s.reconnectConfig.MaxBackoff {
				backoff = s.reconnectConfig.MaxBackoff
			}
			continue
		}

		retries = 0
		backoff = s.reconnectConfig.InitialBackoff

		// Block until the connection drops or the context ends
		ticker := time.NewTicker(time.Second)
	waitLoop:
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return s.Close()
			case <-ticker.C:
				if !s.IsConnected() {
					ticker.Stop()
					break waitLoop
				}
			}
		}
	}
}

// AddHandler registers a result handler
func (s *ResultStream) AddHandler(handler ResultHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// readMessages reads messages from the WebSocket connection
func (s *ResultStream) readMessages() {
	defer s.Close()

	for {
		var raw json.RawMessage
		err := s.conn.ReadJSON(&raw)
		if err != nil {
			s.logger.Debugf("Stream read ended: %v", err)
			s.mu.Lock()
			s.isConnected = false
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		var event resultEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			s.logger.Warnf("Malformed stream message: %v", err)
			continue
		}
		if event.Op != "result" || !event.Final || event.ContestID == "" {
			continue
		}

		s.mu.RLock()
		handlers := s.handlers
		s.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler(event.ContestID); err != nil {
				s.logger.WithField("contest_id", event.ContestID).
					Warnf("Result handler error: %v", err)
			}
		}
	}
}

// IsConnected returns whether the stream is connected
func (s *ResultStream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received message
func (s *ResultStream) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close closes the stream connection
func (s *ResultStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	s.isConnected = false
	return s.conn.Close()
}
