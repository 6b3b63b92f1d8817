package hibouair

import (
  "fmt"

  "github.com/robertof/go-hibouair-exporter/device"
)

type Device struct {
  name string
  id   uint32
}

func (d *Device) Name() string {
  return d.name
}

func (d *Device) ID() uint32 {
  return d.id
}

func (d *Device) String() string {
  return fmt.Sprintf("hibouair[name=%q, id=%v]", d.name, device.FormatID(d.id))
}
