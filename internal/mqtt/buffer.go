package mqtt

import "go.uber.org/zap"

// Message is a serialized publish waiting for the broker.
type Message struct {
	Topic    string `json:"topic"`
	Payload  []byte `json:"payload"`
	QoS      byte   `json:"qos"`
	Retained bool   `json:"retained"`
}

// outbox holds messages published while the link is down. When full the
// oldest message is dropped. Callers synchronize access.
type outbox struct {
	msgs    []Message
	limit   int
	dropped int
	log     *zap.Logger
}

func newOutbox(limit int, log *zap.Logger) *outbox {
	if limit < 1 {
		limit = 1
	}
	return &outbox{limit: limit, log: log}
}

func (o *outbox) add(m Message) {
	if len(o.msgs) == o.limit {
		if o.dropped == 0 {
			o.log.Warn("MQTT outbox full, dropping oldest", zap.Int("limit", o.limit))
		}
		o.dropped++
		copy(o.msgs, o.msgs[1:])
		o.msgs = o.msgs[:len(o.msgs)-1]
	}
	o.msgs = append(o.msgs, m)
}

// take empties the outbox, returning its messages oldest first and the number
// dropped since the last take.
func (o *outbox) take() ([]Message, int) {
	msgs, dropped := o.msgs, o.dropped
	o.msgs, o.dropped = nil, 0
	return msgs, dropped
}

// restore puts unsent messages back ahead of anything queued since take.
func (o *outbox) restore(unsent []Message) {
	merged := append(append([]Message(nil), unsent...), o.msgs...)
	if extra := len(merged) - o.limit; extra > 0 {
		o.dropped += extra
		merged = merged[extra:]
	}
	o.msgs = merged
}

func (o *outbox) size() int {
	return len(o.msgs)
}
