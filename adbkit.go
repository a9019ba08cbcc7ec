// Package adbkit is a client library for the Android Debug Bridge (adb)
// wire protocol. It connects over TCP to a locally running adb server and
// issues typed requests whose responses are decoded into domain values:
// device listings, shell output, file transfers, package installs, feature
// probes, and application-binary-bridge execs.
//
// The package does not launch or locate the adb server binary, discover
// devices over USB or mDNS, or provide a CLI; it assumes a server is
// already listening, by default at 127.0.0.1:5037.
package adbkit

import (
	"context"

	"github.com/nwoolls/adbkit/client"
	"github.com/nwoolls/adbkit/device"
)

// Session is the client's public API: device listing, version/feature
// queries, shell execution, file transfer, and install.
type Session = device.Session

// Config controls how a Session dials and observes the adb server.
type Config = client.Config

// DefaultConfig dials 127.0.0.1:5037 with no tracing.
var DefaultConfig = client.DefaultConfig

// Dial opens a Session to the adb server at serverAddress ("host:port"),
// typically "127.0.0.1:5037".
func Dial(ctx context.Context, serverAddress string) (Session, error) {
	return device.NewSession(ctx, serverAddress)
}

// DialWithConfig opens a Session using the supplied configuration.
func DialWithConfig(ctx context.Context, cfg *Config) (Session, error) {
	return device.NewSessionWithConfig(ctx, cfg)
}
