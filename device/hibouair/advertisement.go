package hibouair

import (
  "encoding/binary"

  "github.com/pkg/errors"
  "github.com/robertof/go-hibouair-exporter/bleuio"
  "github.com/robertof/go-hibouair-exporter/device"
)

// manufacturer data: company ID (2) + beacon fields up to and including the VOC type.
const minManufacturerDataLen = (offVOCType-manufacturerDataOffset)/2 + 1

type Backend struct{}

func (Backend) ParseAdvertisement(a bleuio.Advertisement) (reading device.Reading, err error) {
  data := a.ManufacturerData()

  if len(data) < 2 {
    return reading, device.ErrInvalidData
  }

  if company := binary.BigEndian.Uint16(data); company != ManufacturerID {
    return reading, errors.Wrapf(device.ErrUnknownManufacturer, "hibouair: company id %04X", company)
  }

  if len(data) < minManufacturerDataLen {
    return reading, errors.Wrapf(device.ErrInvalidData,
      "hibouair: unexpected manufacturer data length (%d), want >= %d", len(data), minManufacturerDataLen)
  }

  return DecodeManufacturerData(data), nil
}

var _ device.PassiveBackend = Backend{}
