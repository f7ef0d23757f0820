package websocket

import (
	"encoding/json"

	"github.com/juju/errors"
	"y3sh-bybit-sdk-go/client/websocket/internal"
)

// Operations of the control vocabulary, as they appear in the "op" field.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpAuth        = "auth"
	OpPing        = "ping"
	OpPong        = "pong"
)

// controlRequest is the shape of every outbound control frame.
type controlRequest struct {
	ReqID string   `json:"req_id,omitempty"`
	Op    string   `json:"op"`
	Args  []string `json:"args,omitempty"`
}

// Ack is an acknowledgement of a control request sent earlier: a
// subscribe/unsubscribe result, an auth result, or a heartbeat reply. Acks
// carry no event payload and are never dispatched to the handler; see
// SessionParams.OnAck.
type Ack struct {
	Op      string
	ReqID   string
	ConnID  string
	Success bool
	RetMsg  string
}

// frameKind is the result of classifying a text frame.
type frameKind int

const (
	kindData frameKind = iota
	kindUnrecognized
	kindSubscribeAck
	kindAuthAck
	kindPong
)

var frameKindNames = map[frameKind]string{
	kindData:         "data",
	kindUnrecognized: "unrecognized",
	kindSubscribeAck: "subscribe_ack",
	kindAuthAck:      "auth_ack",
	kindPong:         "pong",
}

func (k frameKind) isAck() bool {
	return k == kindSubscribeAck || k == kindAuthAck || k == kindPong
}

// frameEnvelope is decoded from every inbound text frame to tell control
// replies from data. Only the presence of the fields matters; the payload
// of data frames is left alone.
type frameEnvelope struct {
	Op      *string `json:"op"`
	Topic   *string `json:"topic"`
	Success *bool   `json:"success"`
	RetMsg  string  `json:"ret_msg"`
	ConnID  string  `json:"conn_id"`
	ReqID   string  `json:"req_id"`
}

func buildControl(reqID, op string, args []string) (internal.Frame, error) {
	data, err := json.Marshal(controlRequest{
		ReqID: reqID,
		Op:    op,
		Args:  args,
	})
	if err != nil {
		return internal.Frame{}, errors.Annotatef(err, "marshalling %s request", op)
	}

	return internal.Frame{Type: internal.FrameText, Data: data}, nil
}

// buildSubscribe returns a single subscribe frame for all the given topics.
// Topics are sent as given: duplicates are the caller's business.
func buildSubscribe(reqID string, topics []string) (internal.Frame, error) {
	if len(topics) == 0 {
		return internal.Frame{}, errors.Trace(ErrNoTopics)
	}

	return buildControl(reqID, OpSubscribe, topics)
}

func buildUnsubscribe(reqID string, topics []string) (internal.Frame, error) {
	if len(topics) == 0 {
		return internal.Frame{}, errors.Trace(ErrNoTopics)
	}

	return buildControl(reqID, OpUnsubscribe, topics)
}

// buildAuth wraps the signed credential produced by a CredentialProvider;
// the args are opaque here.
func buildAuth(reqID string, signed []string) (internal.Frame, error) {
	if len(signed) == 0 {
		return internal.Frame{}, errors.Trace(ErrNoCredentials)
	}

	return buildControl(reqID, OpAuth, signed)
}

// buildPing returns the application-level heartbeat frame.
func buildPing(reqID string) (internal.Frame, error) {
	return buildControl(reqID, OpPing, nil)
}

// classify tells control replies from data by the fields present in the
// frame. A "topic" field always means data. Otherwise, a known "op" means
// an acknowledgement, for which the returned Ack is non-nil. Anything else
// is unrecognized, which the caller treats as a candidate event as well.
func classify(data []byte) (frameKind, *Ack) {
	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return kindUnrecognized, nil
	}

	if env.Topic != nil {
		return kindData, nil
	}

	if env.Op == nil {
		return kindUnrecognized, nil
	}

	var kind frameKind
	switch *env.Op {
	case OpSubscribe, OpUnsubscribe:
		kind = kindSubscribeAck
	case OpAuth:
		kind = kindAuthAck
	case OpPing, OpPong:
		kind = kindPong
	default:
		return kindUnrecognized, nil
	}

	return kind, &Ack{
		Op:     *env.Op,
		ReqID:  env.ReqID,
		ConnID: env.ConnID,
		// Private heartbeat replies carry no "success" field at all.
		Success: env.Success == nil || *env.Success,
		RetMsg:  env.RetMsg,
	}
}
