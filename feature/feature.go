// Package feature parses the comma-separated feature list a device
// advertises and answers capability queries against it.
package feature

import "strings"

// Feature is a symbolic capability a device may advertise.
type Feature string

// Known features. Tokens outside this set are dropped silently on parse,
// for forward compatibility with devices advertising newer capabilities.
const (
	CMD              Feature = "cmd"
	AbbExec          Feature = "abb_exec"
	Abb              Feature = "abb"
	Apex             Feature = "apex"
	ShellV2          Feature = "shell_v2"
	StatV2           Feature = "stat_v2"
	LsV2             Feature = "ls_v2"
	FixedPushMkdir   Feature = "fixed_push_mkdir"
	SendRecvV2       Feature = "sendrecv_v2"
	SendRecvV2Brotli Feature = "sendrecv_v2_brotli"
	SendRecvV2LZ4    Feature = "sendrecv_v2_lz4"
	SendRecvV2Zstd   Feature = "sendrecv_v2_zstd"
)

var known = map[Feature]bool{
	CMD: true, AbbExec: true, Abb: true, Apex: true, ShellV2: true,
	StatV2: true, LsV2: true, FixedPushMkdir: true, SendRecvV2: true,
	SendRecvV2Brotli: true, SendRecvV2LZ4: true, SendRecvV2Zstd: true,
}

// Set is a per-device, per-connection snapshot of advertised features.
type Set map[Feature]bool

// Parse builds a Set from the comma-separated token list returned by a
// "host-serial:<serial>:features" request. Unknown tokens are dropped.
func Parse(raw string) Set {
	set := Set{}
	if raw == "" {
		return set
	}
	for _, tok := range strings.Split(raw, ",") {
		f := Feature(strings.TrimSpace(tok))
		if known[f] {
			set[f] = true
		}
	}
	return set
}

// Supports reports whether f is present in the set.
func (s Set) Supports(f Feature) bool {
	return s[f]
}

// SupportsAny reports whether any of fs is present in the set.
func (s Set) SupportsAny(fs ...Feature) bool {
	for _, f := range fs {
		if s[f] {
			return true
		}
	}
	return false
}
