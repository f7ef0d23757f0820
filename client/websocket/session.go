package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cryptowatch/clock"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"y3sh-bybit-sdk-go/client/websocket/internal"
	"y3sh-bybit-sdk-go/common"
)

// The following errors are returned by Session, which applies to
// StreamClient as well.
var (
	// ErrNotConnected means the session has no established connection when
	// the client tried to e.g. subscribe, run the loop, or close it.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected means Connect was called while the session was
	// connecting or connected.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrSessionFailed means the session has terminated with an error before;
	// a failed session can't be reused, create a new one.
	ErrSessionFailed = errors.New("session has failed")

	// ErrConnLoopActive means Run was called while another Run of the same
	// session is active.
	ErrConnLoopActive = errors.New("event loop is already active")

	// ErrNoTopics means a subscribe or unsubscribe request had no topics.
	ErrNoTopics = errors.New("no topics given")

	// ErrNoCredentials means a private session was created without
	// credentials, or the credentials are incomplete.
	ErrNoCredentials = errors.New("no credentials")
)

const defaultPollInterval = 5 * time.Second

// SessionState represents the state of a session.
type SessionState int

const (
	// StateIdle means there is no connection; Connect may be called.
	StateIdle SessionState = iota

	// StateConnecting means the websocket handshake (and the auth request, if
	// any) is in progress.
	StateConnecting

	// StateConnected means the connection is established: one may subscribe
	// and run the event loop.
	StateConnected

	// StateClosing means the connection is being closed gracefully.
	StateClosing

	// StateFailed is terminal: the loop has exited with an error.
	StateFailed
)

// SessionStateNames contains human-readable names for session states.
var SessionStateNames = map[SessionState]string{
	StateIdle:       "idle",
	StateConnecting: "connecting",
	StateConnected:  "connected",
	StateClosing:    "closing",
	StateFailed:     "failed",
}

func (s SessionState) String() string {
	if name, ok := SessionStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Handler receives every data frame of a session, decoded into E. It's
// called from the goroutine which runs Session.Run, one event at a time, and
// the loop doesn't go on until it returns. A non-nil error terminates the
// session.
type Handler[E any] func(ctx context.Context, event E) error

// StateCallback is called on every state transition of a session.
type StateCallback func(oldState, state SessionState)

// SessionParams contains options for a Session.
type SessionParams struct {
	// URL is the websocket endpoint. If empty, it's derived from Category and
	// Testnet.
	URL string

	Category common.Category
	Testnet  bool

	// Credentials are required for the private category; when set, a single
	// auth request is sent right after every successful connection.
	Credentials CredentialProvider

	// IdleTimeout is how long the session may go without receiving anything
	// before it closes the connection and exits with ExitIdleTimeout. Zero
	// disables the check. The timer starts with the first received frame.
	IdleTimeout time.Duration

	// PollInterval bounds every single wait for a frame, and hence how often
	// cancellation, idle timeout and heartbeat are checked; defaults to 5
	// seconds.
	PollInterval time.Duration

	// PingInterval, if non-zero, makes the loop send an application-level
	// ping request that often. The venue drops connections which are silent
	// for a while; 20 seconds is recommended.
	PingInterval time.Duration

	// HandshakeTimeout and WriteTimeout are passed to the transport; they
	// default to 10 and 5 seconds.
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// OnAck, if set, is called from the event loop for every acknowledgement
	// received. Acks are never passed to the handler.
	OnAck func(ack Ack)

	// OnStateChange, if set, is called on every state transition.
	OnStateChange StateCallback

	// Logger defaults to the standard logrus logger.
	Logger *logrus.Entry

	// Metrics, if set, is updated by the session.
	Metrics *Metrics

	// Name labels the session in logs and metrics; defaults to the category,
	// or to the URL if there is no category.
	Name string

	// clock is only set by tests.
	clock clock.Clock
}

// Session is a single persistent connection to the feed. Frames are received
// and decoded into E by Run, which owns the connection until it returns;
// Subscribe, Unsubscribe and Close may be called from any goroutine.
//
// Once Run has exited with an error, the session is in StateFailed for good.
// After a clean exit it's back in StateIdle and can be connected again.
type Session[E any] struct {
	params  SessionParams
	url     string
	handler Handler[E]
	log     *logrus.Entry
	clock   clock.Clock

	mtx     sync.Mutex
	state   SessionState
	conn    *internal.Conn
	running bool

	// lastActivity is the time of the last received frame; zero until the
	// first one after connecting. lastPing is the time of the last heartbeat.
	// Both are only touched by Connect and by the loop.
	lastActivity time.Time
	lastPing     time.Time
}

// NewSession creates a session in StateIdle; call Connect and then Run.
func NewSession[E any](params *SessionParams, handler Handler[E]) (*Session[E], error) {
	if handler == nil {
		return nil, errors.Errorf("handler is nil")
	}

	p := *params

	url := p.URL
	if url == "" {
		var err error
		url, err = common.EndpointURL(p.Category, p.Testnet)
		if err != nil {
			return nil, errors.Trace(err)
		}
	}

	if p.Category.IsPrivate() && p.Credentials == nil {
		return nil, errors.Annotatef(ErrNoCredentials, "private session")
	}

	if p.PollInterval <= 0 {
		p.PollInterval = defaultPollInterval
	}
	if p.IdleTimeout < 0 {
		p.IdleTimeout = 0
	}

	if p.Name == "" {
		p.Name = string(p.Category)
		if p.Name == "" {
			p.Name = url
		}
	}

	if p.clock == nil {
		p.clock = clock.New()
	}

	log := p.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{
		"component": "bybit-ws",
		"url":       url,
	})

	return &Session[E]{
		params:  p,
		url:     url,
		handler: handler,
		log:     log,
		clock:   p.clock,
		state:   StateIdle,
	}, nil
}

// URL returns the endpoint of the session.
func (s *Session[E]) URL() string {
	return s.url
}

// State returns the current state of the session.
func (s *Session[E]) State() SessionState {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.state
}

// Connect establishes the connection and, for sessions with credentials,
// sends the auth request. It doesn't wait for the auth ack: that one is
// received by Run like any other frame.
//
// On failure the returned error is a *ConnectError and the session stays in
// StateIdle; Connect never retries.
func (s *Session[E]) Connect(ctx context.Context) error {
	s.mtx.Lock()
	switch s.state {
	case StateFailed:
		s.mtx.Unlock()
		return errors.Trace(ErrSessionFailed)
	case StateConnecting, StateConnected, StateClosing:
		s.mtx.Unlock()
		return errors.Trace(ErrAlreadyConnected)
	}
	old := s.state
	s.state = StateConnecting
	s.mtx.Unlock()

	s.stateChanged(old, StateConnecting)

	conn, err := s.dial(ctx)
	s.params.Metrics.connectAttempted(s.params.Name, err)
	if err != nil {
		s.log.WithError(err).Info("Connection failed")
		s.setState(StateIdle)
		return &ConnectError{URL: s.url, Err: err}
	}

	s.lastActivity = time.Time{}
	s.lastPing = s.clock.Now()

	s.mtx.Lock()
	s.conn = conn
	s.mtx.Unlock()

	s.log.Info("Connected")
	s.setState(StateConnected)

	return nil
}

func (s *Session[E]) dial(ctx context.Context) (*internal.Conn, error) {
	conn, err := internal.Dial(ctx, &internal.ConnParams{
		URL:              s.url,
		HandshakeTimeout: s.params.HandshakeTimeout,
		WriteTimeout:     s.params.WriteTimeout,
		Clock:            s.clock,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	if s.params.Credentials == nil {
		return conn, nil
	}

	args, err := s.params.Credentials.AuthArgs()
	if err != nil {
		conn.Close()
		return nil, errors.Annotatef(err, "getting auth args")
	}

	frame, err := buildAuth(newReqID(), args)
	if err != nil {
		conn.Close()
		return nil, errors.Trace(err)
	}

	if err := s.sendControl(conn, OpAuth, frame); err != nil {
		conn.Close()
		return nil, errors.Trace(err)
	}

	return conn, nil
}

// Subscribe sends a single subscribe request for all the given topics. The
// result comes later as an Ack, see SessionParams.OnAck.
func (s *Session[E]) Subscribe(topics ...string) error {
	frame, err := buildSubscribe(newReqID(), topics)
	if err != nil {
		return errors.Trace(err)
	}

	return s.send(OpSubscribe, frame)
}

// Unsubscribe sends a single unsubscribe request for all the given topics.
func (s *Session[E]) Unsubscribe(topics ...string) error {
	frame, err := buildUnsubscribe(newReqID(), topics)
	if err != nil {
		return errors.Trace(err)
	}

	return s.send(OpUnsubscribe, frame)
}

func (s *Session[E]) send(op string, frame internal.Frame) error {
	s.mtx.Lock()
	conn := s.conn
	state := s.state
	s.mtx.Unlock()

	if conn == nil || state != StateConnected {
		return errors.Trace(ErrNotConnected)
	}

	if err := s.sendControl(conn, op, frame); err != nil {
		return &TransportError{Op: "send", Err: err}
	}

	return nil
}

func (s *Session[E]) sendControl(conn *internal.Conn, op string, frame internal.Frame) error {
	if err := conn.Send(frame); err != nil {
		return errors.Trace(err)
	}

	s.params.Metrics.controlFrameSent(s.params.Name, op)
	s.log.WithField("op", op).Debug("Sent control frame")

	return nil
}

// Close closes the connection. If Run is active, it returns ExitCancelled
// shortly after; otherwise the session goes straight back to StateIdle.
func (s *Session[E]) Close() error {
	s.mtx.Lock()
	if s.conn == nil || s.state != StateConnected {
		s.mtx.Unlock()
		return errors.Trace(ErrNotConnected)
	}
	conn := s.conn
	running := s.running
	s.state = StateClosing
	s.mtx.Unlock()

	s.stateChanged(StateConnected, StateClosing)
	conn.Close()

	if !running {
		s.mtx.Lock()
		s.conn = nil
		s.mtx.Unlock()

		s.log.Info("Closed")
		s.setState(StateIdle)
	}

	return nil
}

// Run is the event loop: it receives frames until the context is cancelled,
// the connection goes idle or gets closed, or something fails. Data frames
// are decoded into E and passed to the handler, which is awaited before the
// next frame is received.
//
// The returned reason tells why the loop has exited. Clean reasons
// (ExitCancelled, ExitIdleTimeout, ExitRemoteClose) come with a nil error and
// leave the session in StateIdle; the others leave it in StateFailed.
func (s *Session[E]) Run(ctx context.Context) (ExitReason, error) {
	s.mtx.Lock()
	if s.running {
		s.mtx.Unlock()
		return ExitNotStarted, errors.Trace(ErrConnLoopActive)
	}
	if s.conn == nil || s.state != StateConnected {
		s.mtx.Unlock()
		return ExitNotStarted, errors.Trace(ErrNotConnected)
	}
	s.running = true
	conn := s.conn
	s.mtx.Unlock()

	reason, err := s.loop(ctx, conn)

	return s.finish(conn, reason, err)
}

func (s *Session[E]) loop(ctx context.Context, conn *internal.Conn) (ExitReason, error) {
	for {
		if ctx.Err() != nil || s.State() == StateClosing {
			return ExitCancelled, nil
		}

		if s.idleExpired() {
			return ExitIdleTimeout, nil
		}

		if err := s.heartbeat(conn); err != nil {
			return s.sendFailed(err)
		}

		f, err := conn.Receive(s.params.PollInterval)
		if err != nil {
			if errors.Cause(err) == internal.ErrTimeout {
				continue
			}

			if s.State() == StateClosing {
				// Closed by Session.Close.
				return ExitCancelled, nil
			}

			return ExitTransportError, &TransportError{Op: "receive", Err: err}
		}

		s.touch()

		switch f.Type {
		case internal.FramePing:
			s.params.Metrics.frameReceived(s.params.Name, f.Type.String())
			if err := conn.Send(internal.Frame{Type: internal.FramePong, Data: f.Data}); err != nil {
				return s.sendFailed(err)
			}

		case internal.FramePong:
			s.params.Metrics.frameReceived(s.params.Name, f.Type.String())

		case internal.FrameClose:
			s.params.Metrics.frameReceived(s.params.Name, f.Type.String())
			s.log.WithFields(logrus.Fields{
				"code":   f.CloseCode,
				"reason": f.CloseText,
			}).Info("Closed by remote end")
			return ExitRemoteClose, nil

		case internal.FrameBinary:
			s.params.Metrics.frameReceived(s.params.Name, f.Type.String())
			s.log.WithField("size", len(f.Data)).Debug("Ignoring binary frame")

		case internal.FrameText:
			if reason, err := s.handleText(ctx, f.Data); reason != exitNone {
				return reason, err
			}
		}
	}
}

// sendFailed maps a failed write to the exit reason. Session.Close may shut
// the connection while a handler runs, which is not a transport failure.
func (s *Session[E]) sendFailed(err error) (ExitReason, error) {
	if s.State() == StateClosing {
		return ExitCancelled, nil
	}
	return ExitTransportError, &TransportError{Op: "send", Err: err}
}

// validator is implemented by event types which can tell whether a decoded
// frame actually is an event, see common.TopicEvent.
type validator interface {
	Validate() error
}

func (s *Session[E]) handleText(ctx context.Context, data []byte) (ExitReason, error) {
	kind, ack := classify(data)
	s.params.Metrics.frameReceived(s.params.Name, frameKindNames[kind])

	if kind.isAck() {
		s.handleAck(ack)
		return exitNone, nil
	}

	if kind == kindUnrecognized {
		s.log.Debugf("Unrecognized frame, decoding as event: %s", data)
	}

	var event E
	if err := json.Unmarshal(data, &event); err != nil {
		return ExitDecodeError, &DecodeError{Data: data, Err: err}
	}

	if v, ok := any(&event).(validator); ok {
		if err := v.Validate(); err != nil {
			return ExitDecodeError, &DecodeError{Data: data, Err: err}
		}
	}

	if err := s.handler(ctx, event); err != nil {
		return ExitHandlerError, err
	}

	s.params.Metrics.eventDispatched(s.params.Name)

	return exitNone, nil
}

func (s *Session[E]) handleAck(ack *Ack) {
	log := s.log.WithFields(logrus.Fields{
		"op":      ack.Op,
		"req_id":  ack.ReqID,
		"conn_id": ack.ConnID,
	})

	if ack.Success {
		log.Debug("Ack received")
	} else {
		log.WithField("ret_msg", ack.RetMsg).Warn("Request failed")
	}

	if s.params.OnAck != nil {
		s.params.OnAck(*ack)
	}
}

// heartbeat sends an application-level ping if PingInterval has passed since
// the last one.
func (s *Session[E]) heartbeat(conn *internal.Conn) error {
	if s.params.PingInterval <= 0 {
		return nil
	}

	now := s.clock.Now()
	if now.Sub(s.lastPing) < s.params.PingInterval {
		return nil
	}
	s.lastPing = now

	frame, err := buildPing(newReqID())
	if err != nil {
		return errors.Trace(err)
	}

	return errors.Trace(s.sendControl(conn, OpPing, frame))
}

// touch updates the activity clock; it never goes backwards.
func (s *Session[E]) touch() {
	now := s.clock.Now()
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
}

// idleExpired returns true if something was received since connecting, but
// not for longer than IdleTimeout.
func (s *Session[E]) idleExpired() bool {
	if s.params.IdleTimeout <= 0 || s.lastActivity.IsZero() {
		return false
	}

	return s.clock.Now().Sub(s.lastActivity) > s.params.IdleTimeout
}

// finish closes the connection and moves the session to its final state
// after the loop has exited.
func (s *Session[E]) finish(conn *internal.Conn, reason ExitReason, err error) (ExitReason, error) {
	log := s.log.WithField("reason", reason)

	if reason.IsClean() {
		if s.State() != StateClosing {
			s.setState(StateClosing)
		}
		conn.Close()
		s.clearConn()

		log.Info("Event loop exited")
		s.setState(StateIdle)
	} else {
		conn.Close()
		s.clearConn()

		log.WithError(err).Error("Event loop failed")
		s.setState(StateFailed)
	}

	s.params.Metrics.sessionExited(s.params.Name, reason)

	return reason, err
}

func (s *Session[E]) clearConn() {
	s.mtx.Lock()
	s.conn = nil
	s.running = false
	s.mtx.Unlock()
}

func (s *Session[E]) setState(state SessionState) {
	s.mtx.Lock()
	old := s.state
	s.state = state
	s.mtx.Unlock()

	s.stateChanged(old, state)
}

func (s *Session[E]) stateChanged(old, state SessionState) {
	if old == state {
		return
	}

	s.log.Debugf("State changed from %s to %s", old, state)

	if s.params.OnStateChange != nil {
		s.params.OnStateChange(old, state)
	}
}

func newReqID() string {
	return uuid.New().String()
}
