package syncproto

import (
	"bytes"
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestWriteReadHeader(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHeader(&buf, TagData, 1234)
	assert.NoError(t, err, "Not expecting write to fail")

	hdr, err := ReadHeader(&buf)
	assert.NoError(t, err, "Not expecting read to fail")
	assert.Equal(t, TagData, hdr.Tag, "Unexpected tag")
	assert.Equal(t, uint32(1234), hdr.Length, "Unexpected length")
}

func TestWritePathRequest(t *testing.T) {
	var buf bytes.Buffer
	err := WritePathRequest(&buf, TagRecv, "/sdcard/file.txt")
	assert.NoError(t, err, "Not expecting write to fail")

	hdr, err := ReadHeader(&buf)
	assert.NoError(t, err, "Not expecting read to fail")
	assert.Equal(t, TagRecv, hdr.Tag, "Unexpected tag")
	assert.Equal(t, uint32(len("/sdcard/file.txt")), hdr.Length, "Unexpected length")
	assert.Equal(t, "/sdcard/file.txt", buf.String(), "Unexpected path bytes")
}

func TestWritePathRequestTooLong(t *testing.T) {
	var buf bytes.Buffer
	path := make([]byte, MaxPathLength+1)
	err := WritePathRequest(&buf, TagRecv, string(path))
	assert.Error(t, err, "Expecting an oversized path to fail")
}

func TestReadLstatReply(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHeader(&buf, TagLstat, 0100644)
	assert.NoError(t, err, "Not expecting write to fail")
	buf.Write([]byte{0xDC, 0x05, 0x00, 0x00}) // size = 1500
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00}) // mtime = 0

	stat, err := ReadLstatReply(&buf)
	assert.NoError(t, err, "Not expecting read to fail")
	assert.Equal(t, uint32(0100644), stat.Mode, "Unexpected mode")
	assert.Equal(t, uint32(1500), stat.Size, "Unexpected size")
}

func TestReadLstatReplyUnsupportedTag(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHeader(&buf, TagFail, 0)
	assert.NoError(t, err, "Not expecting write to fail")
	buf.Write(make([]byte, 8))

	_, err = ReadLstatReply(&buf)
	assert.Error(t, err, "Expecting a FAIL tag to be rejected")
	_, ok := err.(*UnsupportedSyncProtocol)
	assert.True(t, ok, "Expecting *UnsupportedSyncProtocol")
}

func TestReadHeaderUnknownTag(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHeader(&buf, Tag{'X', 'X', 'X', 'X'}, 0)
	assert.NoError(t, err, "Not expecting write to fail")

	_, err = ReadHeader(&buf)
	assert.Error(t, err, "Expecting an unknown tag to be rejected")
	var uerr *UnexpectedTag
	assert.ErrorAs(t, err, &uerr, "Expecting *UnexpectedTag")
	assert.Equal(t, Tag{'X', 'X', 'X', 'X'}, uerr.Got)
}

func TestReadFailMessage(t *testing.T) {
	buf := bytes.NewBufferString("permission denied")
	msg, err := ReadFailMessage(buf, uint32(len("permission denied")))
	assert.NoError(t, err, "Not expecting read to fail")
	assert.Equal(t, "permission denied", msg, "Unexpected message")
}
