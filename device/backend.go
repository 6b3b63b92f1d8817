package device

import (
	"github.com/robertof/go-hibouair-exporter/bleuio"
)

// PassiveBackend parses readings entirely from advertisements, without connecting to
// the device.
type PassiveBackend interface {
  ParseAdvertisement(a bleuio.Advertisement) (Reading, error)
}
