package device

import (
  "errors"
)

var (
  ErrInvalidData = errors.New("invalid data")
  ErrUnknownManufacturer = errors.New("unknown manufacturer")
)

// Device is a sensor known by configuration, matched against decoded readings by ID.
type Device interface {
  Name() string
  ID() uint32
  String() string
}

// Names maps board identities to the configured device names.
type Names map[uint32]string

func NamesOf(devices []Device) Names {
  names := make(Names, len(devices))

  for _, d := range devices {
    names[d.ID()] = d.Name()
  }

  return names
}

// Lookup returns the configured name, or a name derived from the identity.
func (n Names) Lookup(id uint32) string {
  if name, ok := n[id]; ok {
    return name
  }

  return DefaultName(id)
}

// DefaultName is the name of a sensor that was not given one, e.g. hibouair-22005A.
func DefaultName(id uint32) string {
  return "hibouair-" + FormatID(id)
}
