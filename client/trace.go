package client

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/imdario/mergo"

	"github.com/nwoolls/adbkit/transport"
)

// ClientTrace extends the transport-level hooks with request/execute-level
// events, mirroring the teacher's single ClientTrace struct that spans both
// transport and session concerns.
type ClientTrace struct {
	*transport.Trace

	// ExecuteStart is called before a request is submitted. requestID
	// correlates this call with the matching ExecuteDone.
	ExecuteStart func(requestID, payload string)
	// ExecuteDone is called after a request completes, successfully or not.
	ExecuteDone func(requestID, payload string, err error, d time.Duration)

	// SyncProgress receives a path and a progress fraction. The sync
	// package's Pull and Push do not call it; they report progress only
	// through their onProgress callback.
	SyncProgress func(path string, fraction float64)

	// Error receives a context string and an error. No operation in this
	// module calls it; failures are returned to the caller and reported to
	// ExecuteDone and the transport hooks.
	Error func(context string, err error)
}

// NoOpTrace performs no logging at all.
var NoOpTrace = &ClientTrace{
	Trace:        transport.NoOpTrace,
	ExecuteStart: func(requestID, payload string) {},
	ExecuteDone:  func(requestID, payload string, err error, d time.Duration) {},
	SyncProgress: func(path string, fraction float64) {},
	Error:        func(context string, err error) {},
}

// DefaultTrace logs only errors.
var DefaultTrace = &ClientTrace{
	Trace: transport.DefaultTrace,
	Error: func(context string, err error) {
		log.Printf("adb-client: %s: %v", context, err)
	},
}

// MetricTrace logs execution timings in addition to transport metrics.
var MetricTrace = &ClientTrace{
	Trace: transport.MetricTrace,
	ExecuteDone: func(requestID, payload string, err error, d time.Duration) {
		log.Printf("adb-client: execute[%s] %q err:%v took:%s", requestID, payload, err, d)
	},
	Error: DefaultTrace.Error,
}

// newRequestID returns a fresh correlation id for one Open/Execute call.
func newRequestID() string {
	return uuid.NewString()
}

// orNoOp fills in any unset hook on t from NoOpTrace.
func (t *ClientTrace) orNoOp() *ClientTrace {
	if t == nil {
		return NoOpTrace
	}
	merged := *t
	merged.Trace = merged.Trace.OrNoOp()
	_ = mergo.Merge(&merged, *NoOpTrace)
	return &merged
}
