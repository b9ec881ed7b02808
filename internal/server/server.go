package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/czarbot/czarbot/internal/game"
)

// serverHandle is the name chat lines from the bot itself carry.
const serverHandle = "czarbot"

// Server is the websocket chat server. It tracks connections, their
// handles, and channel membership, and implements game.Transport for
// the games running on top of it.
type Server struct {
	addr       string
	upgrader   websocket.Upgrader
	register   chan *Connection
	unregister chan *Connection
	logger     *log.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	dispatcher *Dispatcher
	httpServer *http.Server

	mu          sync.RWMutex
	connections map[*Connection]bool
	handles     map[string]*Connection
}

// NewServer creates a chat server listening on addr once started.
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		connections: make(map[*Connection]bool),
		handles:     make(map[string]*Connection),
	}
}

// SetDispatcher wires the command dispatcher handling inbound chat.
func (s *Server) SetDispatcher(d *Dispatcher) {
	s.dispatcher = d
}

// Start runs the server until Stop or a listen error.
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	s.logger.Info("Starting chat server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down and closes every connection.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// run handles connection lifecycle.
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.dropConnection(conn)

		case <-s.ctx.Done():
			return
		}
	}
}

// dropConnection removes a connection and tells the games it was
// participating in that the player is gone.
func (s *Server) dropConnection(conn *Connection) {
	s.mu.Lock()
	if _, ok := s.connections[conn]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.connections, conn)
	handle := conn.Handle()
	if handle != "" {
		delete(s.handles, game.NormalizeHandle(handle))
	}
	total := len(s.connections)
	s.mu.Unlock()

	_ = conn.Close()
	s.logger.Info("Client disconnected", "handle", handle, "total", total)

	if handle == "" || s.dispatcher == nil {
		return
	}
	for _, channel := range conn.Channels() {
		s.dispatcher.HandleDeparture(handle, channel)
	}
}

// handleWebSocket handles websocket upgrade requests.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s, s.logger)
	s.register <- client
	client.Start()
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleMessage processes one inbound client message.
func (s *Server) handleMessage(c *Connection, msg *Message) {
	switch msg.Type {
	case MessageTypeHello:
		var data HelloData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Handle == "" {
			c.sendError("bad_hello", "A non-empty handle is required")
			return
		}
		s.registerHandle(c, data.Handle)

	case MessageTypeJoinChannel:
		var data JoinChannelData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Channel == "" {
			c.sendError("bad_channel", "A channel name is required")
			return
		}
		if c.Handle() == "" {
			c.sendError("no_handle", "Say hello before joining a channel")
			return
		}
		c.joinChannel(data.Channel)
		s.Broadcast(data.Channel, fmt.Sprintf("%s has joined %s", c.Handle(), data.Channel))

	case MessageTypePartChannel:
		var data PartChannelData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		c.partChannel(data.Channel)
		if s.dispatcher != nil && c.Handle() != "" {
			s.dispatcher.HandleDeparture(c.Handle(), data.Channel)
		}

	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		handle := c.Handle()
		if handle == "" || !c.InChannel(data.Channel) {
			c.sendError("not_in_channel", "Join the channel before chatting")
			return
		}
		s.sendLine(data.Channel, handle, data.Text)
		if s.dispatcher != nil {
			s.dispatcher.HandleChat(handle, data.Channel, data.Text)
		}

	default:
		c.sendError("unknown_type", fmt.Sprintf("Unknown message type %q", msg.Type))
	}
}

// registerHandle claims a handle for the connection. Handles are
// unique case-insensitively.
func (s *Server) registerHandle(c *Connection, handle string) {
	key := game.NormalizeHandle(handle)
	s.mu.Lock()
	if _, taken := s.handles[key]; taken {
		s.mu.Unlock()
		c.sendError("handle_taken", fmt.Sprintf("The handle %q is already in use", handle))
		return
	}
	s.handles[key] = c
	s.mu.Unlock()

	c.setHandle(handle)
	if msg, err := NewMessage(MessageTypeWelcome, WelcomeData{Handle: handle}); err == nil {
		_ = c.SendMessage(msg)
	}
	s.logger.Info("Handle registered", "handle", handle)
}

// sendLine delivers a chat line to every member of the channel.
func (s *Server) sendLine(channel, from, text string) {
	msg, err := NewMessage(MessageTypeLine, LineData{Channel: channel, From: from, Text: text})
	if err != nil {
		s.logger.Error("Failed to encode line", "error", err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.InChannel(channel) {
			_ = conn.SendMessage(msg)
		}
	}
}

// Broadcast sends a bot line to every member of the channel. Part of
// game.Transport.
func (s *Server) Broadcast(channel, message string) {
	s.sendLine(channel, serverHandle, message)
}

// Notice sends a private message to one handle. Part of
// game.Transport.
func (s *Server) Notice(handle, message string) {
	s.mu.RLock()
	conn, ok := s.handles[game.NormalizeHandle(handle)]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if msg, err := NewMessage(MessageTypeNotice, NoticeData{Text: message}); err == nil {
		_ = conn.SendMessage(msg)
	}
}

// SetVoice announces a channel privilege change. Part of
// game.Transport.
func (s *Server) SetVoice(channel, handle string, granted bool) {
	msg, err := NewMessage(MessageTypeVoice, VoiceData{Channel: channel, Handle: handle, Granted: granted})
	if err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.InChannel(channel) {
			_ = conn.SendMessage(msg)
		}
	}
}
