package client

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/splashsrv/splashsrv/internal/core/data"
	"github.com/splashsrv/splashsrv/internal/packets"
)

// ErrConnectionClosed is returned by Send once the connection has been torn
// down.
var ErrConnectionClosed = errors.New("connection closed")

// outboundBufferSize bounds the number of frames queued for a single client
// before sends start blocking. A stalled client will hit the idle timeout
// before this matters.
const outboundBufferSize = 64

// Client represents one connected game client. All writes go through a
// single goroutine so that complete frames are never interleaved, which
// makes Send safe to call from any goroutine.
type Client struct {
	connection net.Conn
	ipAddr     string
	port       string

	// Tag uniquely identifies the connection in log lines.
	Tag string

	// Account associated with the player, set once they've authenticated.
	Account *data.Account

	pid       int32
	outbound  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func NewClient(connection net.Conn) *Client {
	addr := connection.RemoteAddr().String()
	ipAddr, port := addr, ""
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		ipAddr, port = addr[:i], addr[i+1:]
	}

	c := &Client{
		connection: connection,
		ipAddr:     ipAddr,
		port:       port,
		Tag:        uuid.New().String(),
		outbound:   make(chan []byte, outboundBufferSize),
		closed:     make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Client) IPAddr() string { return c.ipAddr }
func (c *Client) Port() string   { return c.port }

// Read consumes the available bytes directly from the client's connection.
func (c *Client) Read(b []byte) (int, error) {
	return c.connection.Read(b)
}

// ExtendDeadline pushes out the read deadline; the frontend calls this
// between frames to enforce the idle timeout. A zero duration clears any
// existing deadline.
func (c *Client) ExtendDeadline(d time.Duration) error {
	if d == 0 {
		return c.connection.SetReadDeadline(time.Time{})
	}
	return c.connection.SetReadDeadline(time.Now().Add(d))
}

// Close tears down the connection. It is safe to call more than once; every
// call returns the error from the first.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.connection.Close()
	})
	return c.closeErr
}

// NextPID returns the sequence number for the next server-initiated packet.
// The counter starts at 1; replies to client requests echo the request's
// number instead of consuming one of these.
func (c *Client) NextPID() int16 {
	return int16(atomic.AddInt32(&c.pid, 1))
}

// Send queues a server-initiated packet with a freshly allocated sequence
// number.
func (c *Client) Send(packet packets.Packet) error {
	return c.enqueue(packets.Marshal(c.NextPID(), packet))
}

// SendWithPID queues a packet with an explicit sequence number, used for
// replies that must echo the number of the request.
func (c *Client) SendWithPID(pid int16, packet packets.Packet) error {
	return c.enqueue(packets.Marshal(pid, packet))
}

func (c *Client) enqueue(body []byte) error {
	if len(body) > packets.MaxFrameSize {
		return fmt.Errorf("packet body too large for framing: %d bytes", len(body))
	}

	frame := make([]byte, 2+len(body))
	binary.LittleEndian.PutUint16(frame, uint16(len(body)))
	copy(frame[2:], body)

	select {
	case c.outbound <- frame:
		return nil
	case <-c.closed:
		return ErrConnectionClosed
	}
}

// writeLoop drains the outbound queue, writing one complete frame at a time.
func (c *Client) writeLoop() {
	for {
		select {
		case frame := <-c.outbound:
			if err := c.transmit(frame); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// transmit writes the contents of frame to the connection until every byte
// has been sent.
func (c *Client) transmit(frame []byte) error {
	bytesSent := 0

	for bytesSent < len(frame) {
		b, err := c.connection.Write(frame[bytesSent:])
		if err != nil {
			return fmt.Errorf("failed to send to client %v: %s", c.IPAddr(), err.Error())
		}
		bytesSent += b
	}

	return nil
}
