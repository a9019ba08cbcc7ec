// Package device provides the public, high-level surface of the library: a
// Session that dials the adb server as needed and exposes device listing,
// version/feature queries, shell execution, file transfer and install as
// plain Go methods, hiding the underlying Request/Connection machinery.
package device

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/nwoolls/adbkit/client"
	"github.com/nwoolls/adbkit/feature"
	"github.com/nwoolls/adbkit/install"
	"github.com/nwoolls/adbkit/sync"
)

// Session is the adb client's public API.
type Session interface {
	// Close releases any resources the session is holding. The zero-value
	// session (one created by NewSession) holds none; Close is a no-op.
	Close() error

	// Devices returns the short device listing ("host:devices"): serial and
	// connection state only.
	Devices() ([]Device, error)
	// DevicesLong returns the extended device listing ("host:devices-l"):
	// serial, state, and the product/model/device/transport_id fields.
	DevicesLong() ([]Device, error)
	// Version returns the adb server's protocol version.
	Version() (int, error)
	// TransportTo verifies that serial can be selected as a transport
	// target, without doing anything further on that connection.
	TransportTo(serial string) error
	// Features returns the feature set serial advertises.
	Features(serial string) (feature.Set, error)

	// Shell runs cmd on serial via the legacy shell: transport and returns
	// its combined output.
	Shell(serial, cmd string) (string, error)
	// ShellV2 runs cmd on serial via shell,v2:, which multiplexes
	// stdout/stderr/exit-code; this session returns the raw multiplexed
	// stream decoded to text for simplicity.
	ShellV2(serial, cmd string) (string, error)
	// Exec runs cmd on serial via the binary-clean exec: transport.
	Exec(serial, cmd string) ([]byte, error)
	// AbbExec runs a NUL-delimited argv on serial via abb_exec:.
	AbbExec(serial string, argv ...string) ([]byte, error)

	// Pull copies remotePath from serial into sink. onProgress, if non-nil,
	// receives a non-decreasing progress sequence ending in 1.0. ctx bounds
	// the whole transfer: cancelling it, or letting its deadline expire,
	// unblocks whatever read or write is in flight and fails the transfer
	// with a *transport.Cancelled.
	Pull(ctx context.Context, serial, remotePath string, sink io.Writer, onProgress func(float64)) error
	// Push streams source (totalBytes long) to remotePath on serial. ctx
	// governs cancellation the same way it does for Pull.
	Push(ctx context.Context, serial, remotePath string, mode uint32, mtimeSeconds uint32, source io.Reader, totalBytes int64, onProgress func(float64)) error

	// Install runs the single-shot install pipeline for opts against serial.
	// ctx governs cancellation of the package upload.
	Install(ctx context.Context, serial string, opts *install.Options) (bool, error)
	// InstallCreate opens a multi-session install and returns its session id.
	InstallCreate(ctx context.Context, serial string, opts *install.Options) (string, error)
	// InstallWrite streams one package file into an open multi-session
	// install. ctx governs cancellation of the upload.
	InstallWrite(ctx context.Context, serial, sessionID string, opts *install.Options) (bool, error)
	// InstallCommit finalizes a multi-session install.
	InstallCommit(ctx context.Context, serial, sessionID string) (bool, error)
}

type sImpl struct {
	ctx context.Context
	cfg *client.Config
}

// NewSession creates a Session that dials serverAddress (typically
// "127.0.0.1:5037") as needed, using default configuration.
func NewSession(ctx context.Context, serverAddress string) (Session, error) {
	cfg := *client.DefaultConfig
	cfg.ServerAddress = serverAddress
	return NewSessionWithConfig(ctx, &cfg)
}

// NewSessionWithConfig creates a Session using the supplied configuration.
func NewSessionWithConfig(ctx context.Context, cfg *client.Config) (Session, error) {
	resolved := *client.DefaultConfig
	if cfg != nil {
		resolved = *cfg
		if resolved.ServerAddress == "" {
			resolved.ServerAddress = client.DefaultConfig.ServerAddress
		}
		// An unset Trace is filled with no-op hooks when each connection dials.
	}
	return &sImpl{ctx: ctx, cfg: &resolved}, nil
}

func (s *sImpl) Close() error { return nil }

func (s *sImpl) dial() (*client.Connection, error) {
	return client.Dial(s.ctx, s.cfg.ServerAddress, s.cfg.Trace)
}

// dialCtx dials using a caller-supplied ctx rather than the session's own,
// so a single long-running operation (a sync transfer, an install upload)
// can be cancelled or deadline-bounded independently of the Session's
// overall lifetime.
func (s *sImpl) dialCtx(ctx context.Context) (*client.Connection, error) {
	return client.Dial(ctx, s.cfg.ServerAddress, s.cfg.Trace)
}

func (s *sImpl) execute(req client.Request) (interface{}, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.Execute(req)
}

func (s *sImpl) Devices() ([]Device, error) {
	result, err := s.execute(createDevicesRequest(false))
	if err != nil {
		return nil, err
	}
	return result.([]Device), nil
}

func (s *sImpl) DevicesLong() ([]Device, error) {
	result, err := s.execute(createDevicesRequest(true))
	if err != nil {
		return nil, err
	}
	return result.([]Device), nil
}

func (s *sImpl) Version() (int, error) {
	result, err := s.execute(createVersionRequest())
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (s *sImpl) TransportTo(serial string) error {
	conn, err := s.dial()
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.SelectTarget("host:transport:" + serial)
}

func (s *sImpl) Features(serial string) (feature.Set, error) {
	result, err := s.execute(createFeaturesRequest(serial))
	if err != nil {
		return nil, err
	}
	return result.(feature.Set), nil
}

func (s *sImpl) Shell(serial, cmd string) (string, error) {
	result, err := s.execute(createShellRequest(serial, cmd, false))
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (s *sImpl) ShellV2(serial, cmd string) (string, error) {
	result, err := s.execute(createShellRequest(serial, cmd, true))
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (s *sImpl) Exec(serial, cmd string) ([]byte, error) {
	result, err := s.execute(createExecRequest(serial, cmd))
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (s *sImpl) AbbExec(serial string, argv ...string) ([]byte, error) {
	result, err := s.execute(createAbbExecRequest(serial, argv))
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (s *sImpl) Pull(ctx context.Context, serial, remotePath string, sink io.Writer, onProgress func(float64)) error {
	conn, err := s.dialCtx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SelectTarget("host:transport:" + serial); err != nil {
		return err
	}
	return sync.Pull(conn, remotePath, sink, onProgress)
}

func (s *sImpl) Push(ctx context.Context, serial, remotePath string, mode uint32, mtimeSeconds uint32, source io.Reader, totalBytes int64, onProgress func(float64)) error {
	conn, err := s.dialCtx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SelectTarget("host:transport:" + serial); err != nil {
		return err
	}
	return sync.Push(conn, remotePath, modeFromUint(mode), mtimeSeconds, source, totalBytes, onProgress)
}

func (s *sImpl) Install(ctx context.Context, serial string, opts *install.Options) (bool, error) {
	conn, err := s.dialCtx(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	features, err := s.Features(serial)
	if err != nil {
		return false, errors.Wrap(err, "adb: install: fetch features")
	}
	if err := opts.Validate(features); err != nil {
		return false, &client.RequestValidation{Message: err.Error()}
	}
	return install.Install(conn, serial, opts, features)
}

func (s *sImpl) InstallCreate(ctx context.Context, serial string, opts *install.Options) (string, error) {
	conn, err := s.dialCtx(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	features, err := s.Features(serial)
	if err != nil {
		return "", errors.Wrap(err, "adb: install-create: fetch features")
	}
	return install.CreateSession(conn, serial, opts, features)
}

func (s *sImpl) InstallWrite(ctx context.Context, serial, sessionID string, opts *install.Options) (bool, error) {
	conn, err := s.dialCtx(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	features, err := s.Features(serial)
	if err != nil {
		return false, errors.Wrap(err, "adb: install-write: fetch features")
	}
	return install.WriteFile(conn, serial, sessionID, opts, features)
}

func (s *sImpl) InstallCommit(ctx context.Context, serial, sessionID string) (bool, error) {
	conn, err := s.dialCtx(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	features, err := s.Features(serial)
	if err != nil {
		return false, errors.Wrap(err, "adb: install-commit: fetch features")
	}
	return install.Commit(conn, serial, sessionID, features)
}
