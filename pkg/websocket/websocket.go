package websocketPkg

import (
	"CrackDetection/internal/entity"
	"CrackDetection/pkg/metrics"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var (
	ErrNotConnected   = errors.New("not connected to crack detection service")
	ErrMalformedReply = errors.New("malformed reply from crack detection service")
)

type IWebsocket interface {
	DetectCracks(ctx context.Context, frame []byte) ([]entity.Box, error)
	IsConnected() bool
	Reconnect(ctx context.Context) error
	CloseConnections()
}

type Config struct {
	URL          string
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// webSocketClient keeps one connection to the model service. The model answers frames in
// the order it receives them, so a whole round trip runs under mu.
type webSocketClient struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	url          string
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	log          *logrus.Logger
}

func NewAIWebSocketClient(cfg Config, log *logrus.Logger) IWebsocket {
	client := newClient(cfg, log)

	go client.connectInBackground()

	return client
}

func newClient(cfg Config, log *logrus.Logger) *webSocketClient {
	client := &webSocketClient{
		url:          cfg.URL,
		pingInterval: cfg.PingInterval,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		log:          log,
	}

	if client.pingInterval <= 0 {
		client.pingInterval = 30 * time.Second
	}
	if client.readTimeout <= 0 {
		client.readTimeout = 10 * time.Second
	}
	if client.writeTimeout <= 0 {
		client.writeTimeout = 5 * time.Second
	}

	return client
}

func (c *webSocketClient) connectInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.Reconnect(ctx); err != nil {
		c.log.Warnf("Initial connection to crack detection service failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Info("Successfully connected to crack detection service")
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

func (c *webSocketClient) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dialLocked(ctx)
}

func (c *webSocketClient) dialLocked(ctx context.Context) error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return fmt.Errorf("URL for crack detection not configured")
	}

	c.log.Debugf("Connecting to crack detection service at %s", c.url)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn

	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) CloseConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping failed for crack detection service, marking connection as dead: %v", err)
			c.dropLocked()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *webSocketClient) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// DetectCracks sends one JPEG encoded frame and returns the boxes the model found, in the
// coordinate space of that frame. A reply of null boxes yields an empty slice.
func (c *webSocketClient) DetectCracks(ctx context.Context, frame []byte) ([]entity.Box, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.dialLocked(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
	}
	conn := c.conn

	if err := conn.SetWriteDeadline(c.deadline(ctx, c.writeTimeout)); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("error setting write deadline: %w", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	if err := conn.SetReadDeadline(c.deadline(ctx, c.readTimeout)); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("error setting read deadline: %w", err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropLocked()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if ctxDeadline, ok := ctx.Deadline(); ok && !time.Now().Before(ctxDeadline) {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("error reading detection message: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var result entity.CrackDetectionResult
	if err := jsoniter.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	if result.InferenceTimeMs > 0 {
		metrics.ModelInferenceSeconds.Add(result.InferenceTimeMs / 1000)
	}

	return toBoxes(result)
}

func (c *webSocketClient) deadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}

func toBoxes(result entity.CrackDetectionResult) ([]entity.Box, error) {
	if result.Error != "" {
		return nil, fmt.Errorf("crack detection service: %s", result.Error)
	}

	boxes := make([]entity.Box, 0, len(result.Boxes))
	for i, raw := range result.Boxes {
		if len(raw) != 4 {
			return nil, fmt.Errorf("%w: box %d has %d coordinates", ErrMalformedReply, i, len(raw))
		}
		boxes = append(boxes, entity.Box{X1: raw[0], Y1: raw[1], X2: raw[2], Y2: raw[3]})
	}

	return boxes, nil
}
