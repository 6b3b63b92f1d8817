package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// DeviceSpec is the parsed form of a `key=value,key=value` device flag.
type DeviceSpec map[string]string

const (
  DeviceSpecFieldName = "name"
  DeviceSpecFieldID = "id"
)

func NewDeviceSpec(s string) DeviceSpec {
  spec := DeviceSpec{}

  for _, entry := range strings.Split(s, ",") {
    key, value, ok := strings.Cut(entry, "=")

    if !ok {
      log.Warn().Str("Entry", entry).Msg("Skipping invalid device spec entry")
      continue
    }

    spec[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
  }

  return spec
}

func (ds DeviceSpec) Name() string {
  return ds[DeviceSpecFieldName]
}

// ID parses the 24-bit board identity, written as hex with an optional 0x prefix.
func (ds DeviceSpec) ID() (uint32, error) {
  raw := strings.TrimPrefix(strings.ToLower(ds[DeviceSpecFieldID]), "0x")

  if raw == "" {
    return 0, fmt.Errorf("missing %q", DeviceSpecFieldID)
  }

  id, err := strconv.ParseUint(raw, 16, 24)
  if err != nil {
    return 0, fmt.Errorf("invalid %s %q: %w", DeviceSpecFieldID, ds[DeviceSpecFieldID], err)
  }

  return uint32(id), nil
}

type Factory interface {
	FromSpec(spec DeviceSpec) (Device, error)
}

type FactoryDocs interface {
	Help() string
}
