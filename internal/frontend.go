package internal

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/splashsrv/splashsrv/internal/core"
	"github.com/splashsrv/splashsrv/internal/core/client"
	"github.com/splashsrv/splashsrv/internal/packets"
)

var (
	connectedClientsMu sync.Mutex
	connectedClients   = make(map[string]*client.Client)
)

func registerClient(c *client.Client) {
	connectedClientsMu.Lock()
	defer connectedClientsMu.Unlock()
	connectedClients[c.Tag] = c
}

func unregisterClient(c *client.Client) {
	connectedClientsMu.Lock()
	defer connectedClientsMu.Unlock()
	delete(connectedClients, c.Tag)
}

func connectedClientCount() int {
	connectedClientsMu.Lock()
	defer connectedClientsMu.Unlock()
	return len(connectedClients)
}

// frontend implements the concurrent client connection logic.
//
// Frames are read from any connected clients and passed to a backend instance,
// abstracting the lower level connection details away from the Backends.
type frontend struct {
	Address string
	Backend Backend
	Config  *core.Config
	Logger  *logrus.Logger
}

// Start initializes the server backend and opens a TCP socket for the specified server.
// A blocking loop for accepting client connections is spun off in its own goroutine and
// added to the WaitGroup. Context cancellations will stop the server.
func (f *frontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if err := f.Backend.Init(ctx); err != nil {
		return fmt.Errorf("error initializing %s server: %v", f.Backend.Identifier(), err)
	}

	socket, err := f.createSocket()
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %v", f.Address, err)
	}

	wg.Add(1)
	go f.startBlockingLoop(ctx, socket, wg)

	return nil
}

// createSocket opens a socket to listen for client connections on the Address
// provided to the frontend, wrapped in TLS when a certificate is configured.
func (f *frontend) createSocket() (net.Listener, error) {
	if f.Config.TLSEnabled() {
		cert, err := tls.LoadX509KeyPair(f.Config.TLSCertificateFile, f.Config.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("error loading TLS key pair: %w", err)
		}
		return tls.Listen("tcp", f.Address, &tls.Config{Certificates: []tls.Certificate{cert}})
	}

	socket, err := net.Listen("tcp", f.Address)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %s", err.Error())
	}
	return socket, nil
}

// startBlockingLoop implements a connection handling loop that's purely responsible for
// accepting new connections and spinning off goroutines for the Backend to handle them.
func (f *frontend) startBlockingLoop(ctx context.Context, socket net.Listener, wg *sync.WaitGroup) {
	defer wg.Done()

	f.Logger.Printf("[%s] waiting for connections on %v", f.Backend.Identifier(), f.Address)

	connections := make(chan net.Conn)
	go func() {
		for {
			// Poll until we can accept more clients.
			for connectedClientCount() >= f.Config.MaxConnections {
				time.Sleep(10 * time.Second)
			}

			connection, err := socket.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}
				f.Logger.Warnf("failed to accept connection: %s", err.Error())
				continue
			}

			select {
			case connections <- connection:
			case <-ctx.Done():
				_ = connection.Close()
				return
			}
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection := <-connections:
			clientWg.Add(1)
			go f.acceptClient(ctx, connection, clientWg)
		}
	}

	// Stop accepting before waiting out the connections that remain.
	if err := socket.Close(); err != nil {
		f.Logger.Warnf("failed to close listener: %s", err)
	}

	f.Logger.Infof("[%v] shutting down (waiting for connections to close)", f.Backend.Identifier())
	clientWg.Wait()
	f.Logger.Infof("[%v] exited", f.Backend.Identifier())
}

// acceptClient takes a connection, sets up the Client, and moves into the
// frame processing loop.
func (f *frontend) acceptClient(ctx context.Context, connection net.Conn, wg *sync.WaitGroup) {
	defer wg.Done()

	c := client.NewClient(connection)
	f.Backend.SetUpClient(c)

	f.Logger.Infof("[%s] accepted connection %s from %s", f.Backend.Identifier(), c.Tag, c.IPAddr())

	registerClient(c)
	f.processFrames(ctx, c)
}

// processFrames starts a blocking loop dedicated to reading frames sent from
// a game client and only returns once the connection has closed.
func (f *frontend) processFrames(ctx context.Context, c *client.Client) {
	defer f.closeConnectionAndRecover(f.Backend.Identifier(), c)

	buffer := make([]byte, 2048)
	var frame []byte
	var err error

	for {
		select {
		case <-ctx.Done():
			// For now just allow the deferred function to close the connection.
			return
		default:
		}

		if err = c.ExtendDeadline(f.Config.IdleDeadline()); err != nil {
			f.Logger.Warnf("failed to set deadline for %s: %s", c.IPAddr(), err)
			return
		}

		buffer, frame, err = f.readNextFrame(c, buffer)

		if err == io.EOF {
			break
		} else if err != nil {
			f.Logger.Warn(err.Error())
			break
		}

		if err = f.Backend.Handle(ctx, c, frame); err != nil {
			f.Logger.Warn("error in client communication: " + err.Error())
			return
		}
	}
}

// closeConnectionAndRecover is the failsafe that catches any panics, disconnects the
// client, and removes them from the list regardless of the state of the connection.
func (f *frontend) closeConnectionAndRecover(serverName string, c *client.Client) {
	if err := recover(); err != nil {
		f.Logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			c.IPAddr(), err, debug.Stack())
	}

	f.Backend.Disconnect(c)

	if err := c.Close(); err != nil {
		f.Logger.Warnf("failed to close client connection: %s", err)
	}

	unregisterClient(c)

	f.Logger.Infof("[%s] disconnected client %s", serverName, c.IPAddr())
}

// readNextFrame is a blocking call that only returns once the client has
// sent a complete frame: a two byte little-endian length prefix followed by
// that many bytes of packet body. Partial frames are never surfaced.
func (f *frontend) readNextFrame(c *client.Client, buffer []byte) ([]byte, []byte, error) {
	var prefix [2]byte
	if err := f.readDataFromClient(c, 2, prefix[:]); err != nil {
		return buffer, nil, err
	}

	frameSize := int(binary.LittleEndian.Uint16(prefix[:]))
	if frameSize < packets.HeaderSize {
		return buffer, nil, fmt.Errorf("undersized frame (%d bytes) from %s", frameSize, c.IPAddr())
	}

	// Grow the receive buffer if the client sends a frame bigger than its
	// current capacity.
	if frameSize > len(buffer) {
		buffer = make([]byte, frameSize)
	}

	if err := f.readDataFromClient(c, frameSize, buffer); err != nil {
		return buffer, nil, err
	}

	return buffer, buffer[:frameSize], nil
}

func (f *frontend) readDataFromClient(c *client.Client, n int, buffer []byte) error {
	received := 0

	for received < n {
		bytesRead, err := c.Read(buffer[received:n])
		received += bytesRead

		if err == io.EOF || (bytesRead == 0 && err == nil) {
			return io.EOF
		} else if err != nil {
			return errors.New("socket error (" + c.IPAddr() + ") " + err.Error())
		}
	}

	return nil
}
