package events

// Topic constants for draft order lifecycle events.
const (
	TopicOrderCreated   = "order.created"
	TopicOrderUpdated   = "order.updated"
	TopicOrderSubmitted = "order.submitted"
	TopicOrderExpired   = "order.expired"
)
