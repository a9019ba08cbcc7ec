package wire

import (
	"io"

	"github.com/pkg/errors"
)

// Status is the 4-byte preamble that answers every control-channel request.
type Status [4]byte

// StatusOkay and StatusFail are the two status values adb ever sends.
var (
	StatusOkay = Status{'O', 'K', 'A', 'Y'}
	StatusFail = Status{'F', 'A', 'I', 'L'}
)

func (s Status) String() string { return string(s[:]) }

// UnexpectedStatus indicates the 4-byte preamble was neither OKAY nor FAIL.
type UnexpectedStatus struct {
	Got Status
}

func (e *UnexpectedStatus) Error() string {
	return "wire: unexpected transport response " + e.Got.String()
}

// RequestRejected indicates the peer replied FAIL with the given message.
type RequestRejected struct {
	Message string
}

func (e *RequestRejected) Error() string {
	return "adb: request rejected: " + e.Message
}

// ReadStatus reads the 4-byte OKAY/FAIL preamble from r. On OKAY it returns
// nil. On FAIL it reads the length-prefixed error message and returns
// *RequestRejected. Any other 4 bytes yield *UnexpectedStatus.
func ReadStatus(r io.Reader) error {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return errors.Wrap(err, "wire: read status")
	}
	status := Status(buf)
	switch status {
	case StatusOkay:
		return nil
	case StatusFail:
		msg, err := ReadBody(r)
		if err != nil {
			return errors.Wrap(err, "wire: read FAIL message")
		}
		return &RequestRejected{Message: msg}
	default:
		return &UnexpectedStatus{Got: status}
	}
}
