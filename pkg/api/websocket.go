package api

type (
	// SubscribeRequest is sent by clients to choose the events they receive
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// ClientSubscription narrows the execution events a WebSocket client
	// receives. Empty criteria match everything
	ClientSubscription struct {
		Flows       []Name  `json:"flows,omitempty"`
		States      []State `json:"states,omitempty"`
		ExecutionID string  `json:"execution_id,omitempty"`
	}

	// SubscribedResult acknowledges a subscription
	SubscribedResult struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// WebSocketEvent wraps an execution event sent to WebSocket clients
	WebSocketEvent struct {
		Type string          `json:"type"`
		Data *ExecutionEvent `json:"data"`
	}
)

const (
	MessageSubscribe  = "subscribe"
	MessageSubscribed = "subscribed"
	MessageEvent      = "event"
)
