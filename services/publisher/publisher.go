package publisher

// Publisher represents a service for publishing directory updates
type Publisher interface {
	// Publish publishes a message under a field key
	Publish(key string, message []byte) error

	// TrimStream trims the stream to the configured maximum length
	TrimStream() error

	// Close closes the publisher connection
	Close() error
}
