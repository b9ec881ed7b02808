package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/czarbot/czarbot/internal/server"
)

// Client represents a websocket connection to a game server.
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	handle    string
	closeOnce sync.Once
}

// NewClient creates a new websocket client.
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 256),
		receive:   make(chan *server.Message, 256),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect establishes a websocket connection to the server.
func (c *Client) Connect() error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the websocket connection.
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Receive exposes incoming server messages. The channel closes when
// the connection drops.
func (c *Client) Receive() <-chan *server.Message {
	return c.receive
}

// SendMessage queues a message for the server. Returns an error once
// the client has disconnected.
func (c *Client) SendMessage(msg *server.Message) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.receive)
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// Hello registers the client's handle with the server.
func (c *Client) Hello(handle string) error {
	c.mu.Lock()
	c.handle = handle
	c.mu.Unlock()

	msg, err := server.NewMessage(server.MessageTypeHello, server.HelloData{Handle: handle})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// JoinChannel subscribes to a chat channel.
func (c *Client) JoinChannel(channel string) error {
	msg, err := server.NewMessage(server.MessageTypeJoinChannel, server.JoinChannelData{Channel: channel})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// PartChannel leaves a chat channel.
func (c *Client) PartChannel(channel string) error {
	msg, err := server.NewMessage(server.MessageTypePartChannel, server.PartChannelData{Channel: channel})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Chat sends a chat line to a channel. Game commands are chat lines
// that start with the command prefix.
func (c *Client) Chat(channel, text string) error {
	msg, err := server.NewMessage(server.MessageTypeChat, server.ChatData{Channel: channel, Text: text})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Handle returns the registered handle.
func (c *Client) Handle() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handle
}
