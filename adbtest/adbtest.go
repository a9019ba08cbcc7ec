// Package adbtest provides an in-process fake adb server, used by the rest
// of the module's test suites in place of a real adb daemon. It mirrors the
// teacher's netconf/testserver package: a listener goroutine that hands each
// accepted connection to a pluggable per-connection Handler.
package adbtest

import (
	"io"
	"net"

	assert "github.com/stretchr/testify/require"

	"github.com/nwoolls/adbkit/wire"
)

// Handler processes one accepted connection.
type Handler interface {
	Handle(t assert.TestingT, conn net.Conn)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(t assert.TestingT, conn net.Conn)

// Handle calls f.
func (f HandlerFunc) Handle(t assert.TestingT, conn net.Conn) { f(t, conn) }

// Server is a fake adb server listening on a local TCP port.
type Server struct {
	t        assert.TestingT
	listener net.Listener
}

// NewServer starts a fake adb server that hands each connection to handler.
func NewServer(t assert.TestingT, handler Handler) *Server {
	listener, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err, "Listen failed")

	s := &Server{t: t, listener: listener}
	go s.acceptLoop(handler)
	return s
}

func (s *Server) acceptLoop(handler Handler) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			handler.Handle(s.t, conn)
		}()
	}
}

// Addr returns the "host:port" the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close stops accepting new connections.
func (s *Server) Close() {
	_ = s.listener.Close()
}

// ReadRequest reads one control-channel frame (a request payload) from conn.
func ReadRequest(conn net.Conn) (string, error) {
	return wire.ReadBody(conn)
}

// WriteOkay writes the OKAY status preamble.
func WriteOkay(conn net.Conn) error {
	_, err := conn.Write([]byte("OKAY"))
	return err
}

// WriteFail writes a FAIL status preamble followed by the length-prefixed
// message.
func WriteFail(conn net.Conn, message string) error {
	if _, err := conn.Write([]byte("FAIL")); err != nil {
		return err
	}
	framed, err := wire.Encode(message)
	if err != nil {
		return err
	}
	_, err = conn.Write(framed)
	return err
}

// WriteOkayWithBody writes OKAY followed by a control-framed body, the shape
// used by host:version and host-serial:<serial>:features replies.
func WriteOkayWithBody(conn net.Conn, body string) error {
	if err := WriteOkay(conn); err != nil {
		return err
	}
	framed, err := wire.Encode(body)
	if err != nil {
		return err
	}
	_, err = conn.Write(framed)
	return err
}

// ReadAll reads from r until EOF, returning the accumulated bytes. Useful
// for handlers that consume an install payload stream.
func ReadAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
