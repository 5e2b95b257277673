package mqtt

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// CycleEvents contains all wake-cycle events that were published.
	CycleEvents []CycleEvent

	// Payloads contains the JSON payloads for cycle events.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishCycle.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Disconnects counts Disconnect calls.
	Disconnects int

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// Offline sends publishes to Queue instead of recording them.
	Offline bool

	// Queue holds messages published while Offline, oldest first.
	Queue []Message

	// Resumes counts Resume calls that took effect.
	Resumes int
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishCycle records the cycle event.
func (f *FakePublisher) PublishCycle(event CycleEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatCyclePayload(event)
	if err != nil {
		return err
	}
	if f.Offline {
		f.Queue = append(f.Queue, Message{Topic: TopicCycle, Payload: payload})
		return nil
	}

	f.CycleEvents = append(f.CycleEvents, event)
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	if f.Offline {
		f.Queue = append(f.Queue, Message{Topic: TopicSystem, Payload: payload, QoS: 1, Retained: event.Retained})
		return nil
	}

	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Disconnect counts the call.
func (f *FakePublisher) Disconnect() {
	f.Disconnects++
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Queued returns a copy of Queue.
func (f *FakePublisher) Queued() []Message {
	return append([]Message(nil), f.Queue...)
}

// Resume puts msgs ahead of Queue on the first call only.
func (f *FakePublisher) Resume(msgs []Message) {
	if f.Resumes > 0 {
		return
	}
	f.Resumes++
	f.Queue = append(append([]Message(nil), msgs...), f.Queue...)
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.CycleEvents = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Disconnects = 0
	f.Connected = false
	f.Offline = false
	f.Queue = nil
	f.Resumes = 0
}
