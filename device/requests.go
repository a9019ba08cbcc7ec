package device

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nwoolls/adbkit/client"
	"github.com/nwoolls/adbkit/feature"
	"github.com/nwoolls/adbkit/wire"
)

func createDevicesRequest(long bool) client.Request {
	payload := "host:devices"
	if long {
		payload = "host:devices-l"
	}
	return &client.Func{
		SerializeFunc: func() (string, error) { return payload, nil },
		DecodeFunc: func(r io.Reader) (interface{}, error) {
			body, err := wire.ReadBody(r)
			if err != nil {
				return nil, err
			}
			return parseDevices(body), nil
		},
	}
}

func parseDevices(body string) []Device {
	var devices []Device
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := Device{Serial: fields[0], State: fields[1]}
		for _, kv := range fields[2:] {
			parts := strings.SplitN(kv, ":", 2)
			if len(parts) != 2 {
				continue
			}
			switch parts[0] {
			case "product":
				d.Product = parts[1]
			case "model":
				d.Model = parts[1]
			case "device":
				d.DeviceName = parts[1]
			case "transport_id":
				d.TransportID = parts[1]
			}
		}
		devices = append(devices, d)
	}
	return devices
}

func createVersionRequest() client.Request {
	return &client.Func{
		SerializeFunc: func() (string, error) { return "host:version", nil },
		DecodeFunc: func(r io.Reader) (interface{}, error) {
			body, err := wire.ReadBody(r)
			if err != nil {
				return nil, err
			}
			version, err := strconv.ParseInt(body, 16, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "adb: version: parse %q", body)
			}
			return int(version), nil
		},
	}
}

func createFeaturesRequest(serial string) client.Request {
	return &client.Func{
		SerializeFunc: func() (string, error) { return "host-serial:" + serial + ":features", nil },
		DecodeFunc: func(r io.Reader) (interface{}, error) {
			body, err := wire.ReadBody(r)
			if err != nil {
				return nil, err
			}
			return feature.Parse(body), nil
		},
	}
}

func createShellRequest(serial, cmd string, v2 bool) client.Request {
	prefix := "shell:"
	if v2 {
		prefix = "shell,v2:"
	}
	return &client.Func{
		TargetValue:   "host:transport:" + serial,
		SerializeFunc: func() (string, error) { return prefix + cmd, nil },
		DecodeFunc: func(r io.Reader) (interface{}, error) {
			body, err := io.ReadAll(r)
			if err != nil {
				return nil, errors.Wrap(err, "adb: shell: read output")
			}
			return string(body), nil
		},
	}
}

func createExecRequest(serial, cmd string) client.Request {
	return &client.Func{
		TargetValue:   "host:transport:" + serial,
		SerializeFunc: func() (string, error) { return "exec:" + cmd, nil },
		DecodeFunc: func(r io.Reader) (interface{}, error) {
			body, err := io.ReadAll(r)
			if err != nil {
				return nil, errors.Wrap(err, "adb: exec: read output")
			}
			return body, nil
		},
	}
}

func createAbbExecRequest(serial string, argv []string) client.Request {
	return &client.Func{
		TargetValue:   "host:transport:" + serial,
		SerializeFunc: func() (string, error) { return "abb_exec:" + strings.Join(argv, "\x00"), nil },
		DecodeFunc: func(r io.Reader) (interface{}, error) {
			body, err := io.ReadAll(r)
			if err != nil {
				return nil, errors.Wrap(err, "adb: abb_exec: read output")
			}
			return body, nil
		},
	}
}
