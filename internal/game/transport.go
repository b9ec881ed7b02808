package game

// Transport delivers a game's outbound traffic to the chat layer.
// Sends are fire and forget; implementations must not block the
// caller on I/O.
type Transport interface {
	// Broadcast sends a message to every member of the channel.
	Broadcast(channel, message string)
	// Notice sends a private message to one handle.
	Notice(handle, message string)
	// SetVoice grants or revokes the channel privilege used to mark
	// the game's host.
	SetVoice(channel, handle string, granted bool)
}

// Registry is the session index a game removes itself from when it
// stops.
type Registry interface {
	Remove(channel string)
}
