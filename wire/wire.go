// Package wire implements the adb control-channel codec: a length-prefixed
// ASCII framing used for every request/response exchanged with the adb
// server before a connection switches into sync mode or a raw exec stream.
package wire

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MaxBodyLength is the largest body the 4-hex-digit length prefix can encode.
const MaxBodyLength = 0xFFFF

// MalformedFrame indicates that a length prefix could not be parsed as
// 4 hex digits.
type MalformedFrame struct {
	Prefix []byte
}

func (e *MalformedFrame) Error() string {
	return fmt.Sprintf("wire: malformed frame length prefix %q", string(e.Prefix))
}

// Encode produces the framed control-channel payload for body: the body's
// byte length rendered as exactly 4 uppercase hex digits, followed by body
// itself. body must be no longer than MaxBodyLength bytes.
func Encode(body string) ([]byte, error) {
	if len(body) > MaxBodyLength {
		return nil, errors.Errorf("wire: body length %d exceeds maximum %d", len(body), MaxBodyLength)
	}
	framed := make([]byte, 4+len(body))
	copy(framed[4:], body)
	putHexLength(framed[:4], len(body))
	return framed, nil
}

// WriteFrame encodes body and writes it to w in a single call.
func WriteFrame(w io.Writer, body string) error {
	framed, err := Encode(body)
	if err != nil {
		return err
	}
	_, err = w.Write(framed)
	return errors.Wrap(err, "wire: write frame")
}

// ReadLength reads a 4-byte hex length prefix from r and returns the decoded
// length. It returns *MalformedFrame if the prefix is not valid hex.
func ReadLength(r io.Reader) (int, error) {
	prefix := make([]byte, 4)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return 0, errors.Wrap(err, "wire: read length prefix")
	}
	n, ok := parseHexLength(prefix)
	if !ok {
		return 0, &MalformedFrame{Prefix: prefix}
	}
	return n, nil
}

// ReadBody reads a control-channel frame (length prefix + body) from r and
// returns the decoded body.
func ReadBody(r io.Reader) (string, error) {
	n, err := ReadLength(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(err, "wire: read frame body")
	}
	return string(buf), nil
}

const hexDigits = "0123456789ABCDEF"

// putHexLength renders n as 4 uppercase hex digits into dst.
func putHexLength(dst []byte, n int) {
	for i := 3; i >= 0; i-- {
		dst[i] = hexDigits[n&0xF]
		n >>= 4
	}
}

// parseHexLength parses a 4-byte hex length prefix (either letter case).
func parseHexLength(b []byte) (int, bool) {
	n := 0
	for _, c := range b {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= int(c - '0')
		case c >= 'A' && c <= 'F':
			n |= int(c-'A') + 10
		case c >= 'a' && c <= 'f':
			// adb itself only ever emits uppercase, but tolerate lowercase
			// replies from a non-conforming peer rather than fail decoding.
			n |= int(c-'a') + 10
		default:
			return 0, false
		}
	}
	return n, true
}
