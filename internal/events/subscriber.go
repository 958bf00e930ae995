package events

// Message is one event received from the bus.
type Message struct {
	Topic string
	// AccountID comes from the HeaderAccountID header. It is empty for
	// events that do not concern one account.
	AccountID string
	Data      []byte
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers events on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}
