package common

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/juju/errors"
)

// Values of TopicEvent.Type.
const (
	TypeSnapshot = "snapshot"
	TypeDelta    = "delta"
)

// TopicEvent is the envelope shared by every data frame of the feed, public
// or private. Data is left raw: its schema depends on the topic family and is
// up to the consumer.
type TopicEvent struct {
	Topic string `json:"topic"`

	// Type is TypeSnapshot or TypeDelta for public topics; empty for private
	// ones.
	Type string `json:"type,omitempty"`

	// Ts is set by public topics, in unix milliseconds.
	Ts int64 `json:"ts,omitempty"`

	// ID and CreationTime are set by private topics.
	ID           string `json:"id,omitempty"`
	CreationTime int64  `json:"creationTime,omitempty"`

	Data json.RawMessage `json:"data"`
}

// Validate returns an error if the event lacks the envelope fields every data
// frame has.
func (e TopicEvent) Validate() error {
	if e.Topic == "" {
		return errors.Errorf("event has no topic")
	}
	if len(e.Data) == 0 {
		return errors.Errorf("event %s has no data", e.Topic)
	}
	return nil
}

// Family returns the family of the event's topic, see TopicFamily.
func (e TopicEvent) Family() string {
	return TopicFamily(e.Topic)
}

// Time returns the time the event was produced by the venue, or the zero
// time if the frame didn't say.
func (e TopicEvent) Time() time.Time {
	ms := e.Ts
	if ms == 0 {
		ms = e.CreationTime
	}
	if ms == 0 {
		return time.Time{}
	}
	return time.Unix(0, ms*int64(time.Millisecond))
}

func (e TopicEvent) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("[failed to stringify TopicEvent: %s]", err)
	}

	return string(data)
}
