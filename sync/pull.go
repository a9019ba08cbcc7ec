package sync

import (
	"io"

	"github.com/pkg/errors"

	"github.com/nwoolls/adbkit/client"
	"github.com/nwoolls/adbkit/syncproto"
)

// Pull copies remotePath from the device into sink, following the
// Init->StatSent->RecvSent->Streaming->Done/Failed state machine (§4.7).
// onProgress, if non-nil, is called with a non-decreasing sequence of
// fractions ending in 1.0. sink is the caller's responsibility to open
// before calling Pull (so permission errors surface before any network
// traffic) and to close afterwards; on failure the caller decides whether
// to discard whatever was already written.
func Pull(conn *client.Connection, remotePath string, sink io.Writer, onProgress func(float64)) error {
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	if err := Enter(conn); err != nil {
		return errors.Wrap(err, "adb: pull: enter sync mode")
	}
	t := conn.Transport()

	// StatSent.
	if err := syncproto.WritePathRequest(t, syncproto.TagLstat, remotePath); err != nil {
		return errors.Wrap(err, "adb: pull: send LSTAT")
	}
	stat, err := syncproto.ReadLstatReply(t)
	if err != nil {
		return errors.Wrap(err, "adb: pull: read LSTAT reply")
	}
	totalSize := stat.Size

	// RecvSent.
	if err := syncproto.WritePathRequest(t, syncproto.TagRecv, remotePath); err != nil {
		return errors.Wrap(err, "adb: pull: send RECV")
	}

	// Streaming.
	var current uint32
	buf := make([]byte, syncproto.MaxChunkSize)
	for {
		hdr, err := syncproto.ReadHeader(t)
		if err != nil {
			return errors.Wrap(err, "adb: pull: read frame header")
		}

		switch hdr.Tag {
		case syncproto.TagData:
			if hdr.Length > syncproto.MaxChunkSize {
				return errUnsupportedSyncProtocol("DATA chunk length exceeds maximum")
			}
			if _, err := io.ReadFull(t, buf[:hdr.Length]); err != nil {
				return errors.Wrap(err, "adb: pull: read DATA payload")
			}
			if _, err := sink.Write(buf[:hdr.Length]); err != nil {
				return errors.Wrap(err, "adb: pull: write to sink")
			}
			current += hdr.Length
			onProgress(clampProgress(current, totalSize))

		case syncproto.TagDone:
			onProgress(1.0)
			return nil

		case syncproto.TagFail:
			message, err := syncproto.ReadFailMessage(t, hdr.Length)
			if err != nil {
				return errors.Wrap(err, "adb: pull: read FAIL message")
			}
			return &PullFailed{Path: remotePath, Message: message}

		default:
			return errUnsupportedSyncProtocol("unexpected tag " + hdr.Tag.String() + " during PULL streaming")
		}
	}
}
