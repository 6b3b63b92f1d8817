package hibouair

import (
  "fmt"

  "github.com/robertof/go-hibouair-exporter/device"
  "github.com/rs/zerolog/log"
)

type Factory struct{}

func (f *Factory) FromSpec(spec device.DeviceSpec) (device.Device, error) {
  id, err := spec.ID()
  if err != nil {
    return nil, fmt.Errorf("invalid device spec: %w", err)
  }

  d := Device{id: id}

  if name := spec.Name(); name != "" {
    d.name = name
  } else {
    d.name = device.DefaultName(id)
  }

  log.Debug().Stringer("Device", &d).Msg("hibouair: configured device")

  return &d, nil
}

func (f *Factory) Help() string {
  return `Supported parameters:
id (hex, required): 24-bit board ID of this HibouAir sensor (e.g. 22005A)
name (string): Name used in metric labels and MQTT topics. Defaults to hibouair-<id>`
}
