// Package install implements the install pipeline (§4.9): validating a
// local package file, choosing a transport (ABB_EXEC, CMD, or the legacy pm
// fallback used only by the multi-session write variant), serializing the
// install command, streaming the package bytes, and parsing the device's
// plain-text result.
package install

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nwoolls/adbkit/client"
	"github.com/nwoolls/adbkit/feature"
)

// Transport identifies which exec surface an install command rides on.
type Transport int

// Transport values, in the order §4.9 prefers them.
const (
	ABBExec Transport = iota
	CMD
	PM
)

// SelectTransport returns the first transport the device supports, in
// preference order ABB_EXEC, CMD, then (only when allowPM is set, as for
// the multi-session write-individual variant) the legacy pm fallback.
func SelectTransport(features feature.Set, allowPM bool) (Transport, error) {
	switch {
	case features.Supports(feature.AbbExec):
		return ABBExec, nil
	case features.Supports(feature.CMD):
		return CMD, nil
	case allowPM:
		return PM, nil
	default:
		return 0, errors.New("adb: install: device supports neither CMD nor ABB_EXEC")
	}
}

// Options describes one package file to install, shared by the single-shot
// Install call and the multi-session Create/Write/Commit pipeline.
type Options struct {
	// Path is the local .apk or .apex file to install.
	Path string
	// Replace adds the -r (reinstall, keep data) flag.
	Replace bool
	// Apex marks the package as an APEX module; requires device feature
	// APEX and a .apex extension.
	Apex bool
	// ExtraArgs are additional pm/cmd arguments, passed through verbatim to
	// ABB_EXEC's argv, or joined and single-quoted as one shell token for
	// CMD/PM.
	ExtraArgs []string
}

// Validate checks Options against features without touching the network,
// per §4.9's validate() preconditions.
func (o *Options) Validate(features feature.Set) error {
	info, err := os.Stat(o.Path)
	if err != nil {
		return errors.Wrap(err, "adb: install: stat package file")
	}
	if !info.Mode().IsRegular() {
		return errors.Errorf("adb: install: %s is not a regular file", o.Path)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(o.Path), "."))
	if ext != "apk" && ext != "apex" {
		return errors.Errorf("adb: install: unsupported file extension %q", ext)
	}
	if o.Apex {
		if ext != "apex" {
			return errors.New("adb: install: --apex requires a .apex file")
		}
		if !features.Supports(feature.Apex) {
			return errors.New("adb: install: --apex requires device feature APEX")
		}
	}
	if !features.SupportsAny(feature.CMD, feature.AbbExec) {
		return errors.New("adb: install: device supports neither CMD nor ABB_EXEC")
	}
	return nil
}

// Size returns the size in bytes of Options.Path.
func (o *Options) Size() (int64, error) {
	info, err := os.Stat(o.Path)
	if err != nil {
		return 0, errors.Wrap(err, "adb: install: stat package file")
	}
	return info.Size(), nil
}

// command describes one wire-level install invocation: an operation name
// ("install", "install-write", "install-create", "install-commit") plus the
// flag/positional arguments specific to that stage. The same command value
// renders to three different wire shapes depending on the chosen Transport.
type command struct {
	op        string
	extraArgs []string
	replace   bool
	apex      bool
	flags     []string
}

func (c command) abbArgv() []string {
	argv := []string{"package", c.op}
	argv = append(argv, c.extraArgs...)
	if c.replace {
		argv = append(argv, "-r")
	}
	argv = append(argv, c.flags...)
	if c.apex {
		argv = append(argv, "--apex")
	}
	return argv
}

func (c command) shellArgs(prefix string) []string {
	var argv []string
	if prefix != "" {
		argv = append(argv, prefix)
	}
	argv = append(argv, c.op)
	if len(c.extraArgs) > 0 {
		argv = append(argv, quoteShellArg(strings.Join(c.extraArgs, " ")))
	}
	if c.replace {
		argv = append(argv, "-r")
	}
	argv = append(argv, c.flags...)
	if c.apex {
		argv = append(argv, "--apex")
	}
	return argv
}

// payload renders c for transport t.
func (c command) payload(t Transport) string {
	switch t {
	case ABBExec:
		return "abb_exec:" + strings.Join(c.abbArgv(), "\x00")
	case CMD:
		return "exec:cmd " + strings.Join(c.shellArgs("package"), " ")
	default:
		return "exec:pm " + strings.Join(c.shellArgs(""), " ")
	}
}

func quoteShellArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// request adapts a pre-rendered payload and an optional serial (for target
// selection) to client.Request.
type request struct {
	serial  string
	payload string
}

func (r *request) Validate() error { return nil }

func (r *request) Target() string {
	if r.serial == "" {
		return ""
	}
	return "host:transport:" + r.serial
}

func (r *request) Serialize() (string, error) { return r.payload, nil }

func (r *request) Decode(io.Reader) (interface{}, error) { return nil, nil }

// streamResult runs the install pipeline's common tail (§4.9): after OKAY
// has been read, stream source to the transport in 64 KiB chunks, half-close
// the write side, then read the reply until EOF. message is the trimmed
// UTF-8 reply; ok reports whether it begins with "Success".
func streamResult(conn *client.Connection, payload, serial string, source io.Reader) (ok bool, message string, err error) {
	req := &request{serial: serial, payload: payload}
	if err := conn.Open(req); err != nil {
		return false, "", err
	}

	t := conn.Transport()
	if source != nil {
		buf := make([]byte, 64*1024)
		// Hide any WriterTo on source (such as *os.File's) so CopyBuffer
		// really moves the data through buf, 64 KiB at a time.
		if _, err := io.CopyBuffer(t, struct{ io.Reader }{source}, buf); err != nil {
			return false, "", errors.Wrap(err, "adb: install: stream package")
		}
	}
	if err := t.CloseWrite(); err != nil {
		return false, "", errors.Wrap(err, "adb: install: half-close")
	}

	body, err := io.ReadAll(t)
	if err != nil {
		return false, "", errors.Wrap(err, "adb: install: read result")
	}
	message = strings.TrimSpace(string(body))
	return strings.HasPrefix(message, "Success"), message, nil
}

// Install runs the single-shot install pipeline: opts must already have
// passed Validate, and the device must support CMD or ABB_EXEC (the legacy
// pm fallback is not available to a single-shot install).
func Install(conn *client.Connection, serial string, opts *Options, features feature.Set) (bool, error) {
	if err := opts.Validate(features); err != nil {
		return false, &client.RequestValidation{Message: err.Error()}
	}

	t, err := SelectTransport(features, false)
	if err != nil {
		return false, err
	}

	size, err := opts.Size()
	if err != nil {
		return false, err
	}

	cmd := command{
		op:        "install",
		extraArgs: opts.ExtraArgs,
		replace:   opts.Replace,
		apex:      opts.Apex,
		flags:     []string{"-S", strconv.FormatInt(size, 10)},
	}

	file, err := os.Open(opts.Path)
	if err != nil {
		return false, errors.Wrap(err, "adb: install: open package file")
	}
	defer file.Close()

	ok, _, err := streamResult(conn, cmd.payload(t), serial, file)
	if err != nil {
		return false, err
	}
	return ok, nil
}
