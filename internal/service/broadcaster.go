package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	// BroadcastToSession pushes an event to the learner driving the
	// session.
	BroadcastToSession(sessionID string, msgType string, payload interface{})

	// BroadcastToWatchers pushes an event to instructors observing the
	// learner.
	BroadcastToWatchers(userID string, msgType string, payload interface{})

	DisconnectSession(sessionID string)
}
