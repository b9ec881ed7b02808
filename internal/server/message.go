package server

import (
	"encoding/json"
	"time"
)

// MessageType identifies a websocket message.
type MessageType string

// Client to server messages.
const (
	MessageTypeHello       MessageType = "hello"
	MessageTypeJoinChannel MessageType = "join_channel"
	MessageTypePartChannel MessageType = "part_channel"
	MessageTypeChat        MessageType = "chat"
)

// Server to client messages.
const (
	MessageTypeWelcome MessageType = "welcome"
	MessageTypeLine    MessageType = "line"
	MessageTypeNotice  MessageType = "notice"
	MessageTypeVoice   MessageType = "voice"
	MessageTypeError   MessageType = "error"
)

// Message is the base websocket message structure.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a message with the current timestamp.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// HelloData registers the client's handle; required before anything
// else.
type HelloData struct {
	Handle string `json:"handle"`
}

// JoinChannelData subscribes the client to a channel.
type JoinChannelData struct {
	Channel string `json:"channel"`
}

// PartChannelData unsubscribes the client from a channel.
type PartChannelData struct {
	Channel string `json:"channel"`
}

// ChatData is a chat line typed by the client.
type ChatData struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// WelcomeData acknowledges a successful hello.
type WelcomeData struct {
	Handle string `json:"handle"`
}

// LineData is a chat line delivered to channel members.
type LineData struct {
	Channel string `json:"channel"`
	From    string `json:"from"`
	Text    string `json:"text"`
}

// NoticeData is a private message to one client.
type NoticeData struct {
	Text string `json:"text"`
}

// VoiceData announces a channel privilege change.
type VoiceData struct {
	Channel string `json:"channel"`
	Handle  string `json:"handle"`
	Granted bool   `json:"granted"`
}

// ErrorData reports a protocol error to the client.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
