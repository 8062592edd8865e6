package internal

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/splashsrv/splashsrv/internal/core"
	"github.com/splashsrv/splashsrv/internal/core/client"
	"github.com/splashsrv/splashsrv/internal/packets"
)

// stubBackend records what the frontend hands it.
type stubBackend struct {
	mu            sync.Mutex
	frames        [][]byte
	disconnects   int
	panicOnHandle bool
}

func (b *stubBackend) Identifier() string           { return "STUB" }
func (b *stubBackend) Init(context.Context) error   { return nil }
func (b *stubBackend) SetUpClient(c *client.Client) {}

func (b *stubBackend) Handle(_ context.Context, _ *client.Client, data []byte) error {
	if b.panicOnHandle {
		panic("handler exploded")
	}
	frame := make([]byte, len(data))
	copy(frame, data)

	b.mu.Lock()
	b.frames = append(b.frames, frame)
	b.mu.Unlock()
	return nil
}

func (b *stubBackend) Disconnect(c *client.Client) {
	b.mu.Lock()
	b.disconnects++
	b.mu.Unlock()
}

func newTestFrontend(backend Backend) *frontend {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &frontend{
		Address: "test",
		Backend: backend,
		Config:  &core.Config{MaxConnections: 10},
		Logger:  logger,
	}
}

// frameBytes wraps a marshalled packet in the wire's length prefix.
func frameBytes(pid int16, pkt packets.Packet) []byte {
	body := packets.Marshal(pid, pkt)
	framed := make([]byte, 2+len(body))
	binary.LittleEndian.PutUint16(framed, uint16(len(body)))
	copy(framed[2:], body)
	return framed
}

func TestReadNextFrameReassemblesPartialWrites(t *testing.T) {
	f := newTestFrontend(&stubBackend{})
	remote, local := net.Pipe()
	c := client.NewClient(local)
	defer c.Close()
	defer remote.Close()

	framed := frameBytes(3, &packets.KeepAlive{Token: 99})
	go func() {
		// Dribble the frame out a byte at a time to force reassembly.
		for _, b := range framed {
			if _, err := remote.Write([]byte{b}); err != nil {
				return
			}
		}
	}()

	buffer := make([]byte, 2048)
	_, frame, err := f.readNextFrame(c, buffer)
	if err != nil {
		t.Fatalf("readNextFrame returned an error: %v", err)
	}

	env, err := packets.Decode(frame)
	if err != nil {
		t.Fatalf("error decoding reassembled frame: %v", err)
	}
	if pkt, ok := env.Packet.(*packets.KeepAlive); !ok || pkt.Token != 99 {
		t.Errorf("reassembled packet = %+v, expected keep-alive token 99", env.Packet)
	}
}

func TestReadNextFrameGrowsBuffer(t *testing.T) {
	f := newTestFrontend(&stubBackend{})
	remote, local := net.Pipe()
	c := client.NewClient(local)
	defer c.Close()
	defer remote.Close()

	framed := frameBytes(1, &packets.GameStartAck{})
	go remote.Write(framed)

	// A deliberately tiny buffer has to be replaced, not overrun.
	_, frame, err := f.readNextFrame(c, make([]byte, 1))
	if err != nil {
		t.Fatalf("readNextFrame returned an error: %v", err)
	}
	if len(frame) != len(framed)-2 {
		t.Errorf("frame length = %d, expected %d", len(frame), len(framed)-2)
	}
}

func TestReadNextFrameRejectsUndersizedFrame(t *testing.T) {
	f := newTestFrontend(&stubBackend{})
	remote, local := net.Pipe()
	c := client.NewClient(local)
	defer c.Close()
	defer remote.Close()

	go remote.Write([]byte{0x01, 0x00, 0xff})

	if _, _, err := f.readNextFrame(c, make([]byte, 2048)); err == nil {
		t.Fatal("expected an error for a frame shorter than a packet header")
	}
}

func TestProcessFramesDeliversAndDisconnectsOnce(t *testing.T) {
	backend := &stubBackend{}
	f := newTestFrontend(backend)
	remote, local := net.Pipe()
	c := client.NewClient(local)
	defer remote.Close()

	done := make(chan struct{})
	go func() {
		f.processFrames(context.Background(), c)
		close(done)
	}()

	if _, err := remote.Write(frameBytes(1, &packets.KeepAlive{Token: 1})); err != nil {
		t.Fatalf("error writing frame: %v", err)
	}
	remote.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processFrames did not return after the peer closed")
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.frames) != 1 {
		t.Errorf("backend received %d frames, expected 1", len(backend.frames))
	}
	if backend.disconnects != 1 {
		t.Errorf("Disconnect called %d times, expected exactly 1", backend.disconnects)
	}
}

func TestStartBlockingLoopClosesListenerOnCancel(t *testing.T) {
	f := newTestFrontend(&stubBackend{})
	socket, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("error opening listener: %v", err)
	}
	f.Address = socket.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go f.startBlockingLoop(ctx, socket, wg)

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("startBlockingLoop did not stop after cancellation")
	}

	if conn, err := net.Dial("tcp", socket.Addr().String()); err == nil {
		conn.Close()
		t.Fatal("expected the listener to be closed after shutdown")
	}
}

func TestProcessFramesRecoversFromHandlerPanic(t *testing.T) {
	backend := &stubBackend{panicOnHandle: true}
	f := newTestFrontend(backend)
	remote, local := net.Pipe()
	c := client.NewClient(local)
	defer remote.Close()

	done := make(chan struct{})
	go func() {
		f.processFrames(context.Background(), c)
		close(done)
	}()

	if _, err := remote.Write(frameBytes(1, &packets.KeepAlive{Token: 1})); err != nil {
		t.Fatalf("error writing frame: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processFrames did not recover from the handler panic")
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.disconnects != 1 {
		t.Errorf("Disconnect called %d times, expected exactly 1", backend.disconnects)
	}
}
