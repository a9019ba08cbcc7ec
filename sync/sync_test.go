package sync

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	assert "github.com/stretchr/testify/require"

	"github.com/nwoolls/adbkit/adbtest"
	"github.com/nwoolls/adbkit/client"
	"github.com/nwoolls/adbkit/syncproto"
	"github.com/nwoolls/adbkit/transport"
)

func writeSyncHeader(t assert.TestingT, conn net.Conn, tag syncproto.Tag, length uint32) {
	assert.NoError(t, syncproto.WriteHeader(conn, tag, length))
}

func dialTestConnection(t *testing.T, addr string) *client.Connection {
	conn, err := client.Dial(context.Background(), addr, nil)
	assert.NoError(t, err, "Dial should succeed")
	return conn
}

func TestPullSuccess(t *testing.T) {
	payload := make([]byte, 1500)
	for i := range payload {
		payload[i] = byte(i)
	}

	srv := adbtest.NewServer(t, adbtest.HandlerFunc(func(t assert.TestingT, conn net.Conn) {
		entered, err := adbtest.ReadRequest(conn)
		assert.NoError(t, err)
		assert.Equal(t, "sync:", entered)
		assert.NoError(t, adbtest.WriteOkay(conn))

		hdr, err := syncproto.ReadHeader(conn)
		assert.NoError(t, err)
		assert.Equal(t, syncproto.TagLstat, hdr.Tag)
		path := make([]byte, hdr.Length)
		_, err = io.ReadFull(conn, path)
		assert.NoError(t, err)
		assert.Equal(t, "/sdcard/file.bin", string(path))

		// LSTAT reply: tag LSTA, length field doubles as mode, then size+mtime.
		writeSyncHeader(t, conn, syncproto.TagLstat, 0o100644)
		var rest [8]byte
		binary.LittleEndian.PutUint32(rest[0:4], 1500)
		binary.LittleEndian.PutUint32(rest[4:8], 0)
		_, err = conn.Write(rest[:])
		assert.NoError(t, err)

		hdr, err = syncproto.ReadHeader(conn)
		assert.NoError(t, err)
		assert.Equal(t, syncproto.TagRecv, hdr.Tag)
		path = make([]byte, hdr.Length)
		_, err = io.ReadFull(conn, path)
		assert.NoError(t, err)

		writeSyncHeader(t, conn, syncproto.TagData, 1024)
		_, err = conn.Write(payload[:1024])
		assert.NoError(t, err)

		writeSyncHeader(t, conn, syncproto.TagData, 476)
		_, err = conn.Write(payload[1024:1500])
		assert.NoError(t, err)

		writeSyncHeader(t, conn, syncproto.TagDone, 0)
	}))
	defer srv.Close()

	conn := dialTestConnection(t, srv.Addr())
	defer conn.Close()

	var sink bytes.Buffer
	var progress []float64
	err := Pull(conn, "/sdcard/file.bin", &sink, func(f float64) {
		progress = append(progress, f)
	})
	assert.NoError(t, err, "Pull should succeed")
	assert.Equal(t, payload, sink.Bytes())
	assert.Equal(t, []float64{1024.0 / 1500.0, 1.0, 1.0}, progress)
}

func TestPullOversizedChunkIsProtocolError(t *testing.T) {
	srv := adbtest.NewServer(t, adbtest.HandlerFunc(func(t assert.TestingT, conn net.Conn) {
		_, err := adbtest.ReadRequest(conn)
		assert.NoError(t, err)
		assert.NoError(t, adbtest.WriteOkay(conn))

		hdr, err := syncproto.ReadHeader(conn)
		assert.NoError(t, err)
		assert.Equal(t, syncproto.TagLstat, hdr.Tag)
		path := make([]byte, hdr.Length)
		_, _ = io.ReadFull(conn, path)

		writeSyncHeader(t, conn, syncproto.TagLstat, 0o100644)
		var rest [8]byte
		binary.LittleEndian.PutUint32(rest[0:4], 200000)
		_, _ = conn.Write(rest[:])

		hdr, err = syncproto.ReadHeader(conn)
		assert.NoError(t, err)
		assert.Equal(t, syncproto.TagRecv, hdr.Tag)
		path = make([]byte, hdr.Length)
		_, _ = io.ReadFull(conn, path)

		writeSyncHeader(t, conn, syncproto.TagData, 0x20000)
	}))
	defer srv.Close()

	conn := dialTestConnection(t, srv.Addr())
	defer conn.Close()

	var sink bytes.Buffer
	err := Pull(conn, "/sdcard/huge.bin", &sink, nil)
	assert.Error(t, err, "oversized DATA chunk must be rejected")
	assert.Contains(t, err.Error(), "unsupported sync protocol")
}

func TestPullFailed(t *testing.T) {
	srv := adbtest.NewServer(t, adbtest.HandlerFunc(func(t assert.TestingT, conn net.Conn) {
		_, _ = adbtest.ReadRequest(conn)
		assert.NoError(t, adbtest.WriteOkay(conn))

		hdr, _ := syncproto.ReadHeader(conn)
		path := make([]byte, hdr.Length)
		_, _ = io.ReadFull(conn, path)
		writeSyncHeader(t, conn, syncproto.TagLstat, 0o100644)
		var rest [8]byte
		binary.LittleEndian.PutUint32(rest[0:4], 10)
		_, _ = conn.Write(rest[:])

		hdr, _ = syncproto.ReadHeader(conn)
		path = make([]byte, hdr.Length)
		_, _ = io.ReadFull(conn, path)

		message := "permission denied"
		writeSyncHeader(t, conn, syncproto.TagFail, uint32(len(message)))
		_, _ = io.WriteString(conn, message)
	}))
	defer srv.Close()

	conn := dialTestConnection(t, srv.Addr())
	defer conn.Close()

	var sink bytes.Buffer
	err := Pull(conn, "/sdcard/denied", &sink, nil)
	assert.Error(t, err)
	var pullErr *PullFailed
	assert.ErrorAs(t, err, &pullErr)
	assert.Equal(t, "permission denied", pullErr.Message)
}

func TestPushAcknowledged(t *testing.T) {
	srv := adbtest.NewServer(t, adbtest.HandlerFunc(func(t assert.TestingT, conn net.Conn) {
		_, err := adbtest.ReadRequest(conn)
		assert.NoError(t, err)
		assert.NoError(t, adbtest.WriteOkay(conn))

		hdr, err := syncproto.ReadHeader(conn)
		assert.NoError(t, err)
		assert.Equal(t, syncproto.TagSend, hdr.Tag)
		arg := make([]byte, hdr.Length)
		_, err = io.ReadFull(conn, arg)
		assert.NoError(t, err)
		assert.Equal(t, "/sdcard/out.bin,420", string(arg))

		var received []byte
		for {
			hdr, err := syncproto.ReadHeader(conn)
			assert.NoError(t, err)
			if hdr.Tag == syncproto.TagDone {
				break
			}
			assert.Equal(t, syncproto.TagData, hdr.Tag)
			chunk := make([]byte, hdr.Length)
			_, err = io.ReadFull(conn, chunk)
			assert.NoError(t, err)
			received = append(received, chunk...)
		}
		assert.Equal(t, bytes.Repeat([]byte{0x42}, 100), received)

		assert.NoError(t, syncproto.WriteHeader(conn, syncproto.TagOkay, 0))
	}))
	defer srv.Close()

	conn := dialTestConnection(t, srv.Addr())
	defer conn.Close()

	source := bytes.NewReader(bytes.Repeat([]byte{0x42}, 100))
	var progress []float64
	err := Push(conn, "/sdcard/out.bin", 0o644, 1700000000, source, 100, func(f float64) {
		progress = append(progress, f)
	})
	assert.NoError(t, err)
	assert.Equal(t, 1.0, progress[len(progress)-1])
}

func TestPullCancelledMidTransfer(t *testing.T) {
	srv := adbtest.NewServer(t, adbtest.HandlerFunc(func(t assert.TestingT, conn net.Conn) {
		_, err := adbtest.ReadRequest(conn)
		assert.NoError(t, err)
		assert.NoError(t, adbtest.WriteOkay(conn))

		hdr, err := syncproto.ReadHeader(conn)
		assert.NoError(t, err)
		assert.Equal(t, syncproto.TagLstat, hdr.Tag)
		path := make([]byte, hdr.Length)
		_, _ = io.ReadFull(conn, path)

		writeSyncHeader(t, conn, syncproto.TagLstat, 0o100644)
		var rest [8]byte
		binary.LittleEndian.PutUint32(rest[0:4], 1<<20)
		_, _ = conn.Write(rest[:])

		hdr, err = syncproto.ReadHeader(conn)
		assert.NoError(t, err)
		assert.Equal(t, syncproto.TagRecv, hdr.Tag)
		path = make([]byte, hdr.Length)
		_, _ = io.ReadFull(conn, path)

		// Never send DATA/DONE: the client must be unblocked by cancellation
		// rather than hang waiting for a frame that never arrives.
		<-make(chan struct{})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	conn, err := client.Dial(ctx, srv.Addr(), nil)
	assert.NoError(t, err, "Dial should succeed")
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		var sink bytes.Buffer
		done <- Pull(conn, "/sdcard/big.bin", &sink, nil)
	}()

	cancel()

	select {
	case err := <-done:
		assert.Error(t, err, "Pull should fail once cancelled")
		var cerr *transport.Cancelled
		assert.ErrorAs(t, err, &cerr, "Expecting *transport.Cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("Pull was not unblocked by context cancellation")
	}
}

func TestPushFailed(t *testing.T) {
	srv := adbtest.NewServer(t, adbtest.HandlerFunc(func(t assert.TestingT, conn net.Conn) {
		_, _ = adbtest.ReadRequest(conn)
		assert.NoError(t, adbtest.WriteOkay(conn))

		hdr, _ := syncproto.ReadHeader(conn)
		arg := make([]byte, hdr.Length)
		_, _ = io.ReadFull(conn, arg)

		for {
			hdr, _ := syncproto.ReadHeader(conn)
			if hdr.Tag == syncproto.TagDone {
				break
			}
			chunk := make([]byte, hdr.Length)
			_, _ = io.ReadFull(conn, chunk)
		}

		message := "permission denied"
		assert.NoError(t, syncproto.WriteHeader(conn, syncproto.TagFail, uint32(len(message))))
		_, _ = io.WriteString(conn, message)
	}))
	defer srv.Close()

	conn := dialTestConnection(t, srv.Addr())
	defer conn.Close()

	source := bytes.NewReader([]byte("hello"))
	err := Push(conn, "/sdcard/denied", 0o644, 0, source, 5, nil)
	assert.Error(t, err)
	var pushErr *PushFailed
	assert.ErrorAs(t, err, &pushErr)
	assert.Equal(t, "permission denied", pushErr.Message)
}
