// Package transport provides the duplex byte-stream abstraction that the
// client package drives: dialing the adb server, reading/writing framed
// bytes, and half-closing the write side for requests (like install) that
// need to signal EOF without tearing down the read side.
package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Transport is a duplex connection to the adb server. Implementations must
// support CloseWrite so that install-style requests can signal end of
// payload while still reading the reply.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer

	// CloseWrite half-closes the write side of the connection, signalling
	// EOF to the peer while leaving the read side open.
	CloseWrite() error
}

// Cancelled indicates that the context governing a Connect was cancelled,
// or its deadline exceeded, while an operation was in flight. The
// underlying socket is closed as soon as this happens, so a connection
// that returns Cancelled is no longer usable and must be discarded.
type Cancelled struct {
	Err error
}

func (e *Cancelled) Error() string {
	return "transport: cancelled: " + e.Err.Error()
}

func (e *Cancelled) Unwrap() error { return e.Err }

// Dialer creates the underlying network connection to the adb server.
// Separated from Transport so tests can substitute an in-process pipe.
type Dialer interface {
	Dial(ctx context.Context) (net.Conn, error)
}

// NewDialer returns a Dialer that connects to target ("host:port") over TCP.
func NewDialer(target string) Dialer {
	return &realDialer{target: target}
}

type realDialer struct {
	target string
}

func (d *realDialer) Dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", d.target)
	return conn, errors.Wrap(err, "transport: dial")
}

// Connect dials target using dialer and wraps the resulting connection with
// trace hooks, mirroring the teacher's transport construction: dial, then
// wrap reader/writer so every byte moved is observable.
func Connect(ctx context.Context, dialer Dialer, target string, trace *Trace) (Transport, error) {
	trace = trace.OrNoOp()

	trace.DialStart(target)
	begin := time.Now()
	conn, err := dialer.Dial(ctx)
	trace.DialDone(target, err, time.Since(begin))
	if err != nil {
		return nil, err
	}

	t := &tcpTransport{conn: conn, target: target, trace: trace, ctx: ctx, stop: make(chan struct{})}
	go t.watchContext()
	return t, nil
}

type tcpTransport struct {
	conn   net.Conn
	target string
	trace  *Trace

	ctx      context.Context
	stop     chan struct{}
	stopOnce sync.Once
}

// watchContext closes the underlying connection as soon as ctx is done,
// unblocking whatever Read or Write is currently in flight. This is the
// only way to make a blocking I/O suspension point cancellable: the
// connection itself has no cancellable Read/Write.
func (t *tcpTransport) watchContext() {
	select {
	case <-t.ctx.Done():
		_ = t.conn.Close()
	case <-t.stop:
	}
}

// cancelledOr rewrites err as *Cancelled when it was caused by watchContext
// closing the connection out from under an in-flight Read or Write.
func (t *tcpTransport) cancelledOr(err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := t.ctx.Err(); ctxErr != nil {
		return &Cancelled{Err: ctxErr}
	}
	return err
}

func (t *tcpTransport) Read(p []byte) (n int, err error) {
	t.trace.ReadStart(p)
	begin := time.Now()
	n, err = t.conn.Read(p)
	err = t.cancelledOr(err)
	t.trace.ReadDone(p[:n], n, err, time.Since(begin))
	return
}

func (t *tcpTransport) Write(p []byte) (n int, err error) {
	t.trace.WriteStart(p)
	begin := time.Now()
	n, err = t.conn.Write(p)
	err = t.cancelledOr(err)
	t.trace.WriteDone(p, n, err, time.Since(begin))
	return
}

// CloseWrite half-closes the write side, if the underlying connection
// supports it (true for *net.TCPConn).
func (t *tcpTransport) CloseWrite() error {
	type writeCloser interface {
		CloseWrite() error
	}
	if wc, ok := t.conn.(writeCloser); ok {
		return errors.Wrap(wc.CloseWrite(), "transport: close write")
	}
	return nil
}

func (t *tcpTransport) Close() (err error) {
	t.stopOnce.Do(func() { close(t.stop) })
	err = t.conn.Close()
	t.trace.ConnectionClosed(t.target, err)
	return errors.Wrap(err, "transport: close")
}
