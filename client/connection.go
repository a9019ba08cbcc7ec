package client

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nwoolls/adbkit/transport"
	"github.com/nwoolls/adbkit/wire"
)

// Connection is a single control-channel connection to an adb server. It
// owns the underlying transport for its whole lifetime: one Connection
// serves exactly one target-selection plus one request, because adb itself
// tears the socket down (or hands it off to sync/exec mode) after a single
// exchange.
//
// Connection mirrors the teacher's Session type: a thin wrapper around a
// transport that knows how to run the request lifecycle and nothing about
// any particular request's payload.
type Connection struct {
	transport transport.Transport
	trace     *ClientTrace
}

// Dial opens a new Connection to serverAddress ("host:port").
func Dial(ctx context.Context, serverAddress string, trace *ClientTrace) (*Connection, error) {
	trace = trace.orNoOp()
	t, err := transport.Connect(ctx, transport.NewDialer(serverAddress), serverAddress, trace.Trace)
	if err != nil {
		return nil, err
	}
	return &Connection{transport: t, trace: trace}, nil
}

// NewConnection wraps an already-established transport, for callers (such
// as tests) that dial through a custom Dialer.
func NewConnection(t transport.Transport, trace *ClientTrace) *Connection {
	return &Connection{transport: t, trace: trace.orNoOp()}
}

// Transport returns the underlying transport, for callers that need to hand
// the connection off to a sync or install state machine after the
// control-channel handshake completes.
func (c *Connection) Transport() transport.Transport { return c.transport }

// Close closes the underlying transport.
func (c *Connection) Close() error { return c.transport.Close() }

// SelectTarget writes a "host:transport:..." style target-selection command
// and awaits OKAY. It is a no-op if target is "".
func (c *Connection) SelectTarget(target string) error {
	if target == "" {
		return nil
	}
	if err := wire.WriteFrame(c.transport, target); err != nil {
		return errors.Wrap(err, "adb: select target")
	}
	if err := wire.ReadStatus(c.transport); err != nil {
		return errors.Wrap(err, "adb: select target")
	}
	return nil
}

// Open runs a request's validate/target-select/serialize/send/await-OKAY
// steps and then returns, leaving the transport positioned exactly where the
// server's reply begins. It is the primitive streaming operations (sync
// PULL/PUSH, install) build on, since their "read_result" is a state machine
// rather than a single decoded value.
func (c *Connection) Open(req Request) error {
	if err := req.Validate(); err != nil {
		return &RequestValidation{Message: err.Error()}
	}
	if err := c.SelectTarget(req.Target()); err != nil {
		return err
	}
	payload, err := req.Serialize()
	if err != nil {
		return errors.Wrap(err, "adb: serialize request")
	}

	requestID := newRequestID()
	c.trace.ExecuteStart(requestID, payload)
	begin := time.Now()

	if err := wire.WriteFrame(c.transport, payload); err != nil {
		err = errors.Wrap(err, "adb: write request")
		c.trace.ExecuteDone(requestID, payload, err, time.Since(begin))
		return err
	}
	if err := wire.ReadStatus(c.transport); err != nil {
		c.trace.ExecuteDone(requestID, payload, err, time.Since(begin))
		return err
	}
	c.trace.ExecuteDone(requestID, payload, nil, time.Since(begin))
	return nil
}

// Execute runs req to completion: validate, select target, serialize, send,
// await OKAY, then decode the reply. It is the single-shot counterpart to
// Open, used by requests whose result is one decoded value (devices,
// version, features) rather than a progress stream.
func (c *Connection) Execute(req Request) (interface{}, error) {
	if err := c.Open(req); err != nil {
		return nil, err
	}
	result, err := req.Decode(c.transport)
	if err != nil {
		return nil, errors.Wrap(err, "adb: decode reply")
	}
	return result, nil
}
