package install

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nwoolls/adbkit/client"
	"github.com/nwoolls/adbkit/feature"
)

// CreateSession opens a multi-session install (install-create) and returns
// the session id the device assigned, parsed out of its
// "Success: created install session [<id>]"-shaped reply.
func CreateSession(conn *client.Connection, serial string, opts *Options, features feature.Set) (string, error) {
	t, err := SelectTransport(features, true)
	if err != nil {
		return "", err
	}

	cmd := command{
		op:        "install-create",
		extraArgs: opts.ExtraArgs,
		replace:   opts.Replace,
		apex:      opts.Apex,
	}

	ok, message, err := streamResult(conn, cmd.payload(t), serial, nil)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf("adb: install-create failed: %s", message)
	}

	id, err := parseSessionID(message)
	if err != nil {
		return "", errors.Wrapf(err, "adb: install-create: parse reply %q", message)
	}
	return id, nil
}

// WriteFile streams one package file into the session previously opened by
// CreateSession (install-write, "write-individual" in adb's own terms).
func WriteFile(conn *client.Connection, serial, sessionID string, opts *Options, features feature.Set) (bool, error) {
	t, err := SelectTransport(features, true)
	if err != nil {
		return false, err
	}

	size, err := opts.Size()
	if err != nil {
		return false, err
	}
	filename := filepath.Base(opts.Path)

	cmd := command{
		op:    "install-write",
		flags: []string{"-S", strconv.FormatInt(size, 10), sessionID, filename, "-"},
	}

	file, err := os.Open(opts.Path)
	if err != nil {
		return false, errors.Wrap(err, "adb: install-write: open package file")
	}
	defer file.Close()

	ok, _, err := streamResult(conn, cmd.payload(t), serial, file)
	return ok, err
}

// Commit finalizes a multi-session install (install-commit).
func Commit(conn *client.Connection, serial, sessionID string, features feature.Set) (bool, error) {
	t, err := SelectTransport(features, true)
	if err != nil {
		return false, err
	}

	cmd := command{op: "install-commit", flags: []string{sessionID}}
	ok, _, err := streamResult(conn, cmd.payload(t), serial, nil)
	return ok, err
}

func parseSessionID(message string) (string, error) {
	open := strings.IndexByte(message, '[')
	closeIdx := strings.IndexByte(message, ']')
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return "", errors.New("no session id found")
	}
	id := strings.TrimSpace(message[open+1 : closeIdx])
	if id == "" {
		return "", errors.New("empty session id")
	}
	return id, nil
}
