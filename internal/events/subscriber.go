package events

// Subscriber receives raw payloads from the event bus. The ingest loop
// consumes one subscription per inbound subject.
type Subscriber interface {
	// Subscribe delivers payloads on the returned channel until the cancel
	// function is called, which unsubscribes and closes the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
