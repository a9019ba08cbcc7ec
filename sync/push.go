package sync

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/nwoolls/adbkit/client"
	"github.com/nwoolls/adbkit/syncproto"
)

// Push streams source (totalBytes long) to remotePath on the device, mode
// and owning only its permission bits, and mtimeSeconds the file's
// modification time in whole seconds (the caller is responsible for
// truncating a millisecond-resolution mtime, per §4.8's mtime÷1000 note).
// Following Init->SendSent->Streaming->DoneSent->Acked/Failed, onProgress
// (if non-nil) receives a non-decreasing sequence ending in 1.0.
func Push(conn *client.Connection, remotePath string, mode os.FileMode, mtimeSeconds uint32, source io.Reader, totalBytes int64, onProgress func(float64)) error {
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	if err := Enter(conn); err != nil {
		return errors.Wrap(err, "adb: push: enter sync mode")
	}
	t := conn.Transport()

	// SendSent.
	argument := fmt.Sprintf("%s,%d", remotePath, mode&0o777)
	if err := syncproto.WritePathRequest(t, syncproto.TagSend, argument); err != nil {
		return errors.Wrap(err, "adb: push: send SEND")
	}

	// Streaming: header is written into the same buffer as the chunk
	// payload so each DATA frame is a single write syscall.
	buf := make([]byte, 8+syncproto.MaxChunkSize)
	var sent int64

	if totalBytes > 0 {
		for {
			n, readErr := source.Read(buf[8:])
			if n > 0 {
				copy(buf[0:4], syncproto.TagData[:])
				binary.LittleEndian.PutUint32(buf[4:8], uint32(n))
				if _, err := t.Write(buf[:8+n]); err != nil {
					return errors.Wrap(err, "adb: push: write DATA frame")
				}
				sent += int64(n)
				onProgress(clampProgress64(sent, totalBytes))
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				return errors.Wrap(readErr, "adb: push: read local source")
			}
		}
	} else {
		onProgress(1.0)
	}

	// DoneSent.
	if err := syncproto.WriteHeader(t, syncproto.TagDone, mtimeSeconds); err != nil {
		return errors.Wrap(err, "adb: push: send DONE")
	}
	hdr, err := syncproto.ReadHeader(t)
	if err != nil {
		return errors.Wrap(err, "adb: push: read acknowledgement")
	}
	switch hdr.Tag {
	case syncproto.TagOkay:
		onProgress(1.0)
		return nil
	case syncproto.TagFail:
		message, err := syncproto.ReadFailMessage(t, hdr.Length)
		if err != nil {
			return errors.Wrap(err, "adb: push: read FAIL message")
		}
		return &PushFailed{Message: message}
	default:
		return errUnsupportedSyncProtocol("unexpected tag " + hdr.Tag.String() + " acknowledging PUSH")
	}
}

func clampProgress64(current, total int64) float64 {
	if total <= 0 {
		return 1.0
	}
	f := float64(current) / float64(total)
	if f > 1.0 {
		f = 1.0
	}
	return f
}

