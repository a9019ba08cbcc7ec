// Package sync implements the PULL and PUSH state machines that run over
// the adb sync sub-protocol (§4.6-4.8): entering sync mode on a connection,
// then driving a small per-transfer state machine directly against the raw
// transport rather than through the generic client.Request/Execute path,
// since a transfer's result is a progress sequence rather than one value.
package sync

import (
	"io"

	"github.com/pkg/errors"

	"github.com/nwoolls/adbkit/client"
	"github.com/nwoolls/adbkit/syncproto"
)

// enterRequest serializes the "sync:" control command that switches a
// connection into sync framing.
type enterRequest struct{}

func (enterRequest) Validate() error                         { return nil }
func (enterRequest) Target() string                          { return "" }
func (enterRequest) Serialize() (string, error)              { return "sync:", nil }
func (enterRequest) Decode(r io.Reader) (interface{}, error) { return nil, nil }

// Enter switches conn into sync framing. Exactly one sync operation may run
// on a socket at a time; the caller must not issue another control request
// on conn until the sync operation (Pull or Push) returns.
func Enter(conn *client.Connection) error {
	return conn.Open(enterRequest{})
}

// PullFailed indicates the device replied FAIL while streaming a PULL.
type PullFailed struct {
	Path    string
	Message string
}

func (e *PullFailed) Error() string {
	return "adb: pull " + e.Path + " failed: " + e.Message
}

// PushFailed indicates the device replied FAIL after a PUSH's DONE frame.
type PushFailed struct {
	Message string
}

func (e *PushFailed) Error() string {
	return "adb: push failed: " + e.Message
}

func clampProgress(current, total uint32) float64 {
	if total == 0 {
		return 1.0
	}
	f := float64(current) / float64(total)
	if f > 1.0 {
		f = 1.0
	}
	return f
}

// errUnsupportedSyncProtocol builds a *syncproto.UnsupportedSyncProtocol
// carrying a stack trace.
var errUnsupportedSyncProtocol = func(reason string) error {
	return errors.WithStack(&syncproto.UnsupportedSyncProtocol{Reason: reason})
}
