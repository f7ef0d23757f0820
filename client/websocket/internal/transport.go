package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cryptowatch/clock"
	"github.com/gorilla/websocket"
	"github.com/juju/errors"
)

// FrameType is the kind of a single websocket frame.
type FrameType int

const (
	FrameText FrameType = iota
	FrameBinary
	FramePing
	FramePong
	FrameClose
)

// FrameTypeNames contains human-readable names for frame types.
var FrameTypeNames = map[FrameType]string{
	FrameText:   "text",
	FrameBinary: "binary",
	FramePing:   "ping",
	FramePong:   "pong",
	FrameClose:  "close",
}

func (t FrameType) String() string {
	if name, ok := FrameTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("frame(%d)", int(t))
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second

	// rxBufferSize is how many received frames may wait for Receive before
	// the read loop blocks.
	rxBufferSize = 16
)

var (
	// ErrTimeout is returned by Receive when nothing arrived within maxWait.
	ErrTimeout = errors.New("transport: receive timeout")

	// ErrNotConnected is returned by Send after the connection was closed.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrConnClosed is returned by Receive once the connection is gone, either
	// because Close was called or because the remote end sent a close frame.
	ErrConnClosed = errors.New("transport: connection closed")
)

// Frame is one websocket message unit, either data or control.
type Frame struct {
	Type FrameType
	Data []byte

	// CloseCode and CloseText are only relevant for FrameClose.
	CloseCode int
	CloseText string
}

// ConnParams contains params for opening a websocket connection (see Dial).
type ConnParams struct {
	URL    string
	Header http.Header

	// HandshakeTimeout bounds the upgrade handshake; defaults to 10 seconds.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds every single write; defaults to 5 seconds.
	WriteTimeout time.Duration

	// Clock drives receive timers. Only tests need to set it.
	Clock clock.Clock
}

// Conn is a single established websocket connection. Frames are read by an
// internal goroutine and handed out one at a time by Receive; writes are
// serialized, so Send may be called from any goroutine.
type Conn struct {
	params ConnParams

	ws *websocket.Conn

	writeMtx sync.Mutex

	rx chan Frame

	// readDone is closed when the read loop exits; readErr is the reason and
	// must only be read after readDone is closed.
	readDone chan struct{}
	readErr  error

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial performs the websocket handshake with params.URL. It is never retried
// here: any failure (network, TLS, rejected upgrade) is returned as is.
func Dial(ctx context.Context, params *ConnParams) (*Conn, error) {
	p := *params

	if p.HandshakeTimeout <= 0 {
		p.HandshakeTimeout = defaultHandshakeTimeout
	}
	if p.WriteTimeout <= 0 {
		p.WriteTimeout = defaultWriteTimeout
	}
	if p.Clock == nil {
		p.Clock = clock.New()
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: p.HandshakeTimeout,
	}

	ws, resp, err := dialer.DialContext(ctx, p.URL, p.Header)
	if err != nil {
		if resp != nil {
			return nil, errors.Annotatef(err, "handshake rejected with status %d", resp.StatusCode)
		}
		return nil, errors.Trace(err)
	}

	c := &Conn{
		params:   p,
		ws:       ws,
		rx:       make(chan Frame, rxBufferSize),
		readDone: make(chan struct{}),
		closed:   make(chan struct{}),
	}

	// Control frames are surfaced to the reader instead of being answered
	// here; the owner of the connection decides how to reply.
	ws.SetPingHandler(func(appData string) error {
		c.deliver(Frame{Type: FramePing, Data: []byte(appData)})
		return nil
	})
	ws.SetPongHandler(func(appData string) error {
		c.deliver(Frame{Type: FramePong, Data: []byte(appData)})
		return nil
	})

	go c.readLoop()

	return c, nil
}

// URL returns the url the connection was dialed to.
func (c *Conn) URL() string {
	return c.params.URL
}

// Receive returns the next received frame, waiting at most maxWait for it.
// If nothing arrives in time, ErrTimeout is returned and the connection stays
// usable.
func (c *Conn) Receive(maxWait time.Duration) (Frame, error) {
	select {
	case <-c.closed:
		return Frame{}, errors.Trace(ErrConnClosed)
	default:
	}

	timer := c.params.Clock.Timer(maxWait)
	defer timer.Stop()

	select {
	case f := <-c.rx:
		return f, nil

	case <-c.readDone:
		// Frames read before the failure are still handed out first.
		select {
		case f := <-c.rx:
			return f, nil
		default:
		}
		return Frame{}, errors.Trace(c.readErr)

	case <-timer.C:
		return Frame{}, errors.Trace(ErrTimeout)
	}
}

// Send writes a single frame. Text and binary frames carry Data; ping and
// pong frames carry Data as the application payload; close frames use
// CloseCode and CloseText.
func (c *Conn) Send(f Frame) error {
	select {
	case <-c.closed:
		return errors.Trace(ErrNotConnected)
	default:
	}

	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()

	deadline := time.Now().Add(c.params.WriteTimeout)

	var err error
	switch f.Type {
	case FrameText, FrameBinary:
		msgType := websocket.TextMessage
		if f.Type == FrameBinary {
			msgType = websocket.BinaryMessage
		}
		if err = c.ws.SetWriteDeadline(deadline); err == nil {
			err = c.ws.WriteMessage(msgType, f.Data)
		}

	case FramePing:
		err = c.ws.WriteControl(websocket.PingMessage, f.Data, deadline)

	case FramePong:
		err = c.ws.WriteControl(websocket.PongMessage, f.Data, deadline)

	case FrameClose:
		err = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(f.CloseCode, f.CloseText),
			deadline,
		)

	default:
		return errors.Errorf("unsupported frame type %v", f.Type)
	}

	if err != nil {
		return errors.Annotatef(err, "sending %s frame", f.Type)
	}

	return nil
}

// Close sends a normal closure frame and closes the underlying connection.
// It's safe to call Close any number of times, on a connection which is
// already closed by the remote end as well; failures are ignored since there
// is nothing left to do about them.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.writeMtx.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.params.WriteTimeout),
		)
		c.writeMtx.Unlock()

		close(c.closed)
		_ = c.ws.Close()
	})
}

// deliver hands a frame to Receive. It returns false if the connection was
// closed before anyone took the frame.
func (c *Conn) deliver(f Frame) bool {
	select {
	case c.rx <- f:
		return true
	case <-c.closed:
		return false
	}
}

// readLoop keeps reading frames until the connection fails or gets closed.
// NOTE: ping and pong frames are delivered by the handlers set in Dial, which
// gorilla calls from within ReadMessage, i.e. from this goroutine as well.
func (c *Conn) readLoop() {
	defer close(c.readDone)

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			// gorilla reports an unexpected EOF as CloseAbnormalClosure, which
			// is never sent over the wire: that one is a transport failure.
			if ce, ok := err.(*websocket.CloseError); ok && ce.Code != websocket.CloseAbnormalClosure {
				c.deliver(Frame{
					Type:      FrameClose,
					CloseCode: ce.Code,
					CloseText: ce.Text,
				})
				c.readErr = ErrConnClosed
				return
			}

			select {
			case <-c.closed:
				c.readErr = ErrConnClosed
			default:
				if isClosedConnError(err) {
					c.readErr = ErrConnClosed
				} else {
					c.readErr = err
				}
			}
			return
		}

		var f Frame
		switch msgType {
		case websocket.TextMessage:
			f = Frame{Type: FrameText, Data: data}
		case websocket.BinaryMessage:
			f = Frame{Type: FrameBinary, Data: data}
		default:
			continue
		}

		if !c.deliver(f) {
			c.readErr = ErrConnClosed
			return
		}
	}
}

// isClosedConnError is needed because we don't have a separate type for
// that kind of error. Too bad.
func isClosedConnError(err error) bool {
	if err == nil {
		return false
	}

	return strings.Contains(err.Error(), "use of closed network connection")
}
