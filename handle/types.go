package handle

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventCloned
	EventFreed
	EventDropped
	EventInvoked
	EventRemoved
)

var eventNames = [...]string{
	EventCreated: "created",
	EventCloned:  "cloned",
	EventFreed:   "freed",
	EventDropped: "dropped",
	EventInvoked: "invoked",
	EventRemoved: "removed",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Handle uint64
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Dropper is optionally implemented by arena values that need cleanup.
// Drop runs once, when the last handle to the value is freed.
type Dropper interface {
	Drop()
}

// Releaser is the producer's clone/free surface as seen by the consumer.
type Releaser interface {
	Clone(h uint64) (uint64, error)
	Free(h uint64) error
}

type observers struct {
	list []Observer
}

func (o *observers) add(obs Observer) {
	o.list = append(o.list, obs)
}

func (o *observers) remove(obs Observer) {
	for i, x := range o.list {
		if x == obs {
			o.list = append(o.list[:i], o.list[i+1:]...)
			return
		}
	}
}
