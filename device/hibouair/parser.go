package hibouair

import (
  "encoding/binary"
  "encoding/hex"

  "github.com/robertof/go-hibouair-exporter/device"
)

const (
  // ManufacturerID is the Bluetooth SIG company identifier of Smart Sensor Devices AB,
  // as it appears on the wire (little endian 0x075B).
  ManufacturerID = 0x5B07

  // MinPayloadLength is the hex length a scan payload must exceed to be decoded.
  MinPayloadLength = 60

  // hex characters taken by the flags AD structure and the manufacturer AD header
  // (02 01 06 1B FF) in front of the manufacturer data.
  manufacturerDataOffset = 10
)

// offsets in hex characters into the advertising payload.
const (
  offManufacturerID = 10
  offBeaconNumber   = 14
  offBoardType      = 16
  offBoardID        = 18
  offAmbientLight   = 24
  offPressure       = 28
  offTemperature    = 32
  offHumidity       = 36
  offVOC            = 40
  offPM1_0          = 44
  offPM2_5          = 48
  offPM10           = 52
  offCO2            = 56
  offVOCType        = 60
)

// Decode decodes a hex encoded advertising payload. It never fails: a field that is
// out of bounds or not valid hex is left at zero and the remaining fields are still
// decoded. Callers check the length against MinPayloadLength.
func Decode(payload string) device.Reading {
  return decodeAt(payload, 0)
}

// DecodeManufacturerData decodes the manufacturer specific data alone, i.e. the
// payload without its leading flags and AD header.
func DecodeManufacturerData(data []byte) device.Reading {
  return decodeAt(hex.EncodeToString(data), manufacturerDataOffset)
}

func decodeAt(s string, shift int) (r device.Reading) {
  p := payload{s: s, shift: shift}

  r.ManufacturerID = p.u16BE(offManufacturerID)
  r.BeaconNumber = p.u8(offBeaconNumber)
  r.BoardType = device.BoardType(p.u8(offBoardType))

  if id := p.bytes(offBoardID, 3); id != nil {
    copy(r.BoardID[:], id)
  }

  r.AmbientLightRaw = p.u16(offAmbientLight)
  r.PressureRaw = p.u16(offPressure)
  r.TemperatureRaw = int16(p.u16(offTemperature)) // signed, two's complement on conversion
  r.HumidityRaw = p.u16(offHumidity)
  r.VOCRaw = p.u16(offVOC)
  r.PM1_0Raw = p.u16(offPM1_0)
  r.PM2_5Raw = p.u16(offPM2_5)
  r.PM10Raw = p.u16(offPM10)
  r.CO2Raw = p.u16(offCO2)
  r.VOCType = device.VOCType(p.u8(offVOCType))

  return r
}

type payload struct {
  s     string
  shift int
}

// bytes returns n bytes starting at hex offset `from`, nil if unavailable.
func (p payload) bytes(from, n int) []byte {
  from -= p.shift
  to := from + n*2

  if from < 0 || to > len(p.s) {
    return nil
  }

  b, err := hex.DecodeString(p.s[from:to])
  if err != nil {
    return nil
  }

  return b
}

func (p payload) u8(from int) uint8 {
  if b := p.bytes(from, 1); b != nil {
    return b[0]
  }

  return 0
}

// u16BE reads the field as written.
func (p payload) u16BE(from int) uint16 {
  if b := p.bytes(from, 2); b != nil {
    return binary.BigEndian.Uint16(b)
  }

  return 0
}

// u16 reads a byte swapped field.
func (p payload) u16(from int) uint16 {
  return ByteSwap16(p.u16BE(from))
}

// ByteSwap16 swaps the two bytes of v.
func ByteSwap16(v uint16) uint16 {
  return v<<8 | v>>8
}
