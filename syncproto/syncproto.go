// Package syncproto implements the framing for adb's sync sub-protocol: the
// fixed 8-byte tag+length header used by STAT/LSTAT/RECV/SEND/DATA/DONE/
// OKAY/FAIL exchanges once a connection has issued "sync:" on the control
// channel.
package syncproto

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MaxChunkSize is the largest payload a single DATA frame may carry
// (MAX_FILE_PACKET_LENGTH in the adb sources).
const MaxChunkSize = 64 * 1024

// MaxPathLength is the largest remote path, in UTF-8 bytes, sync will accept.
const MaxPathLength = 1024

// Tag identifies the kind of a sync frame.
type Tag [4]byte

// String renders the tag as its 4 ASCII characters.
func (t Tag) String() string { return string(t[:]) }

// Sync protocol tags.
var (
	TagStat  = Tag{'S', 'T', 'A', 'T'}
	TagLstat = Tag{'L', 'S', 'T', 'A'}
	TagRecv  = Tag{'R', 'E', 'C', 'V'}
	TagSend  = Tag{'S', 'E', 'N', 'D'}
	TagData  = Tag{'D', 'A', 'T', 'A'}
	TagDone  = Tag{'D', 'O', 'N', 'E'}
	TagOkay  = Tag{'O', 'K', 'A', 'Y'}
	TagFail  = Tag{'F', 'A', 'I', 'L'}
)

var knownTags = map[Tag]bool{
	TagStat: true, TagLstat: true, TagRecv: true, TagSend: true,
	TagData: true, TagDone: true, TagOkay: true, TagFail: true,
}

// UnexpectedTag indicates a frame tag that the codec does not recognise.
type UnexpectedTag struct {
	Got Tag
}

func (e *UnexpectedTag) Error() string {
	return "syncproto: unexpected tag " + e.Got.String()
}

// UnsupportedSyncProtocol indicates a state-machine violation: a recognized
// tag appearing where the PULL/PUSH sequence doesn't allow it, or a chunk
// length that exceeds MaxChunkSize.
type UnsupportedSyncProtocol struct {
	Reason string
}

func (e *UnsupportedSyncProtocol) Error() string {
	return "syncproto: unsupported sync protocol: " + e.Reason
}

// Header is the 8-byte tag+length structure that prefixes every sync frame.
type Header struct {
	Tag    Tag
	Length uint32
}

// WriteHeader writes the 8-byte header to w.
func WriteHeader(w io.Writer, tag Tag, length uint32) error {
	var buf [8]byte
	copy(buf[0:4], tag[:])
	binary.LittleEndian.PutUint32(buf[4:8], length)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "syncproto: write header")
}

// WritePathRequest writes a tag + path-length + path frame, used by
// STAT/LSTAT/RECV/SEND to name the remote path (the request-id plus
// path-name framing described in adb's sync protocol).
func WritePathRequest(w io.Writer, tag Tag, path string) error {
	if len(path) > MaxPathLength {
		return errors.Errorf("syncproto: path length %d exceeds maximum %d", len(path), MaxPathLength)
	}
	if err := WriteHeader(w, tag, uint32(len(path))); err != nil {
		return err
	}
	_, err := io.WriteString(w, path)
	return errors.Wrap(err, "syncproto: write path")
}

// ReadHeader reads an 8-byte header from r. The tag must be one of the
// known sync protocol tags; anything else is a codec-level violation,
// not a state-machine one, and is reported as *UnexpectedTag.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, errors.Wrap(err, "syncproto: read header")
	}
	var tag Tag
	copy(tag[:], buf[0:4])
	if !knownTags[tag] {
		return Header{}, errors.WithStack(&UnexpectedTag{Got: tag})
	}
	return Header{Tag: tag, Length: binary.LittleEndian.Uint32(buf[4:8])}, nil
}

// ReadFailMessage reads the length-prefixed UTF-8 error message that follows
// a FAIL tag whose length field has already been consumed via ReadHeader.
func ReadFailMessage(r io.Reader, length uint32) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(err, "syncproto: read FAIL message")
	}
	return string(buf), nil
}

// Stat is the (mode, size, mtime) triple returned by an LSTAT request.
type Stat struct {
	Mode  uint32
	Size  uint32
	Mtime uint32
}

// ReadLstatReply reads the 16-byte LSTAT response: tag (expected LSTA) plus
// the (mode, size, mtime) triple.
func ReadLstatReply(r io.Reader) (Stat, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return Stat{}, err
	}
	if hdr.Tag != TagLstat {
		return Stat{}, &UnsupportedSyncProtocol{Reason: "expected LSTA, got " + hdr.Tag.String()}
	}
	var rest [8]byte
	if _, err := io.ReadFull(r, rest[:]); err != nil {
		return Stat{}, errors.Wrap(err, "syncproto: read LSTAT body")
	}
	return Stat{
		Mode:  hdr.Length,
		Size:  binary.LittleEndian.Uint32(rest[0:4]),
		Mtime: binary.LittleEndian.Uint32(rest[4:8]),
	}, nil
}
