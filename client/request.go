package client

import "io"

// Request is the contract every control-channel operation satisfies (§4.4):
// a pure validation step, an optional connection-target selector, a
// deterministic serializer, and a decoder that consumes whatever the server
// sends once OKAY has been read.
//
// Request covers "complex" (single-shot) operations. Operations that stream
// (sync PUSH/PULL, install) use the lower-level Connection methods directly
// instead of Decode, because their result shape is a progress sequence
// rather than a single value.
type Request interface {
	// Validate checks the request's own parameters without touching the
	// network. It must be called, and must succeed, before any I/O.
	Validate() error

	// Target returns the connection-target prefix command (for example
	// "host:transport:emulator-5554") that must be selected before
	// Serialize is sent, or "" if the request runs on whatever target is
	// already selected.
	Target() string

	// Serialize produces the control-channel payload body; the Connection
	// adds the 4-hex-digit length prefix when it writes it. It must be
	// deterministic and side-effect free; it may be called more than once.
	Serialize() (string, error)

	// Decode consumes the remainder of the stream after a successful OKAY
	// and produces the request's result.
	Decode(r io.Reader) (interface{}, error)
}

// Func builds a Request from plain functions, for simple operations that
// don't need a dedicated named type (mirroring the teacher's
// create*Request helper-function style, but assembled as values instead of
// structs so call sites stay terse).
type Func struct {
	ValidateFunc  func() error
	TargetValue   string
	SerializeFunc func() (string, error)
	DecodeFunc    func(r io.Reader) (interface{}, error)
}

// Validate implements Request.
func (f *Func) Validate() error {
	if f.ValidateFunc == nil {
		return nil
	}
	return f.ValidateFunc()
}

// Target implements Request.
func (f *Func) Target() string { return f.TargetValue }

// Serialize implements Request.
func (f *Func) Serialize() (string, error) { return f.SerializeFunc() }

// Decode implements Request.
func (f *Func) Decode(r io.Reader) (interface{}, error) { return f.DecodeFunc(r) }
