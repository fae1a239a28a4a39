package utils

type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// EventBus is a small in-process bridge between the REST side and the
// websocket hub. Publishing never blocks; if the consumer falls behind the
// event is dropped.
type EventBus struct {
	events chan Event
}

func NewEventBus() *EventBus {
	return &EventBus{
		events: make(chan Event, 100),
	}
}

func (eb *EventBus) Publish(event string, data interface{}) {
	e := Event{Event: event, Data: data}
	select {
	case eb.events <- e:
	default:
	}
}

func (eb *EventBus) SubscribeCh() <-chan Event {
	return eb.events
}
