package transport

import (
	"log"
	"time"

	"github.com/imdario/mergo"
)

// Trace defines hook functions for observing transport-level events.
// Any nil hook is filled in with a no-op by OrNoOp, so callers only need to
// populate the hooks they care about.
type Trace struct {
	// DialStart is called before dialing target.
	DialStart func(target string)
	// DialDone is called after the dial attempt completes.
	DialDone func(target string, err error, d time.Duration)

	// ReadStart is called before a read from the underlying connection.
	ReadStart func(buf []byte)
	// ReadDone is called after a read completes.
	ReadDone func(buf []byte, n int, err error, d time.Duration)

	// WriteStart is called before a write to the underlying connection.
	WriteStart func(buf []byte)
	// WriteDone is called after a write completes.
	WriteDone func(buf []byte, n int, err error, d time.Duration)

	// ConnectionClosed is called once the connection has been closed.
	ConnectionClosed func(target string, err error)
}

// NoOpTrace is a Trace whose hooks all do nothing.
var NoOpTrace = &Trace{
	DialStart:        func(target string) {},
	DialDone:         func(target string, err error, d time.Duration) {},
	ReadStart:        func(buf []byte) {},
	ReadDone:         func(buf []byte, n int, err error, d time.Duration) {},
	WriteStart:       func(buf []byte) {},
	WriteDone:        func(buf []byte, n int, err error, d time.Duration) {},
	ConnectionClosed: func(target string, err error) {},
}

// DefaultTrace logs only errors, via the standard library logger.
var DefaultTrace = &Trace{
	DialDone: func(target string, err error, d time.Duration) {
		if err != nil {
			log.Printf("adb-transport: dial %s failed: %v", target, err)
		}
	},
	ConnectionClosed: func(target string, err error) {
		if err != nil {
			log.Printf("adb-transport: close %s failed: %v", target, err)
		}
	},
}

// MetricTrace logs the duration of dial and I/O operations.
var MetricTrace = &Trace{
	DialDone: func(target string, err error, d time.Duration) {
		log.Printf("adb-transport: dial %s err:%v took:%s", target, err, d)
	},
	ReadDone: func(buf []byte, n int, err error, d time.Duration) {
		log.Printf("adb-transport: read %d bytes err:%v took:%s", n, err, d)
	},
	WriteDone: func(buf []byte, n int, err error, d time.Duration) {
		log.Printf("adb-transport: write %d bytes err:%v took:%s", n, err, d)
	},
	ConnectionClosed: DefaultTrace.ConnectionClosed,
}

// OrNoOp returns t with every unset hook filled in from NoOpTrace, so
// callers can pass a partially populated *Trace (or nil) safely.
func (t *Trace) OrNoOp() *Trace {
	if t == nil {
		return NoOpTrace
	}
	merged := *t
	_ = mergo.Merge(&merged, *NoOpTrace)
	return &merged
}
