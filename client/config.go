package client

// Defines structs describing adb client connection behaviour.

// Config controls how a Connection dials and observes the adb server.
type Config struct {
	// ServerAddress is the "host:port" of the adb server. Defaults to
	// 127.0.0.1:5037, the standard adb server listening address.
	ServerAddress string
	// Trace supplies hooks for observing connection and execution events.
	// Any unset hook falls back to a no-op.
	Trace *ClientTrace
}

// DefaultConfig is merged with any caller-supplied Config to fill in unset
// fields, mirroring the teacher's client.DefaultConfig/mergo.Merge pattern.
var DefaultConfig = &Config{
	ServerAddress: "127.0.0.1:5037",
	Trace:         NoOpTrace,
}
