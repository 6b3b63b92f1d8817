package device

import (
  "fmt"
  "strconv"
  "time"
)

type BoardType uint8

const (
  BoardTypeParticulateMatter BoardType = 0x03
  BoardTypeCO2               BoardType = 0x04
)

func (bt BoardType) String() string {
  switch bt {
  case BoardTypeParticulateMatter:
    return "PM"
  case BoardTypeCO2:
    return "CO2"
  default:
    return "Unknown"
  }
}

// VOCType selects how the raw VOC value is to be read.
type VOCType uint8

const (
  VOCTypeLegacy VOCType = iota
  VOCTypeResistance
  VOCTypePPM
  VOCTypeIAQ
)

func (vt VOCType) String() string {
  switch vt {
  case VOCTypeLegacy:
    return "Legacy"
  case VOCTypeResistance:
    return "Resistance"
  case VOCTypePPM:
    return "PPM"
  case VOCTypeIAQ:
    return "IAQ"
  default:
    return "Unknown(" + strconv.Itoa(int(vt)) + ")"
  }
}

// Unit is empty for the legacy and resistance types, they have no documented scale.
func (vt VOCType) Unit() string {
  switch vt {
  case VOCTypePPM:
    return "ppm"
  case VOCTypeIAQ:
    return "IAQ"
  default:
    return ""
  }
}

// Reading is one decoded sensor beacon payload. Multi-byte values are kept exactly as
// they sit on the wire interpretation used by the codec (already byte-swapped); the
// accessor methods apply the unit scaling.
type Reading struct {
  ManufacturerID uint16
  BeaconNumber   uint8
  BoardType
  BoardID [3]byte

  AmbientLightRaw uint16
  PressureRaw     uint16
  TemperatureRaw  int16
  HumidityRaw     uint16
  VOCRaw          uint16
  PM1_0Raw        uint16
  PM2_5Raw        uint16
  PM10Raw         uint16
  CO2Raw          uint16
  VOCType
}

// ID is the 24-bit board identity used to tell sensors apart.
func (r Reading) ID() uint32 {
  return uint32(r.BoardID[0])<<16 | uint32(r.BoardID[1])<<8 | uint32(r.BoardID[2])
}

// IDString formats the identity as six hex digits, the way it is printed on the board.
func (r Reading) IDString() string {
  return FormatID(r.ID())
}

func FormatID(id uint32) string {
  return fmt.Sprintf("%06X", id&0xffffff)
}

func (r Reading) AmbientLight() uint16 {
  return r.AmbientLightRaw
}

func (r Reading) PressureHPa() float64 {
  return float64(r.PressureRaw) / 10.0
}

func (r Reading) TemperatureCelsius() float64 {
  return float64(r.TemperatureRaw) / 10.0
}

func (r Reading) RelativeHumidity() float64 {
  return float64(r.HumidityRaw) / 10.0
}

// VOC is scaled to ppm for VOCTypePPM and left as reported otherwise.
func (r Reading) VOC() float64 {
  if r.VOCType == VOCTypePPM {
    return float64(r.VOCRaw) / 100.0
  }

  return float64(r.VOCRaw)
}

// VOCDisplay renders the VOC value with its unit. Legacy and resistance values are
// printed bare.
func (r Reading) VOCDisplay() string {
  switch r.VOCType {
  case VOCTypePPM:
    return fmt.Sprintf("%.2f %s", r.VOC(), r.VOCType.Unit())
  case VOCTypeIAQ:
    return fmt.Sprintf("%d %s", r.VOCRaw, r.VOCType.Unit())
  default:
    return strconv.Itoa(int(r.VOCRaw))
  }
}

func (r Reading) PM1_0() float64 {
  return float64(r.PM1_0Raw) / 10.0
}

func (r Reading) PM2_5() float64 {
  return float64(r.PM2_5Raw) / 10.0
}

func (r Reading) PM10() float64 {
  return float64(r.PM10Raw) / 10.0
}

func (r Reading) CO2PPM() uint16 {
  return r.CO2Raw
}

func (r Reading) String() string {
  extra := ""

  switch r.BoardType {
  case BoardTypeCO2:
    extra = fmt.Sprintf(",CO2=%dppm", r.CO2PPM())
  case BoardTypeParticulateMatter:
    extra = fmt.Sprintf(",PM1.0=%.1f,PM2.5=%.1f,PM10=%.1f", r.PM1_0(), r.PM2_5(), r.PM10())
  }

  return fmt.Sprintf(
    "Reading[ID=%v,Board=%v,Temperature=%.1fC,Humidity=%.1f%%,Pressure=%.1fhPa,Light=%d,VOC=%v%v]",
    r.IDString(), r.BoardType, r.TemperatureCelsius(), r.RelativeHumidity(), r.PressureHPa(),
    r.AmbientLight(), r.VOCDisplay(), extra)
}

// Observation is a reading together with the time it was received.
type Observation struct {
  Reading
  ReceivedAt time.Time
}
