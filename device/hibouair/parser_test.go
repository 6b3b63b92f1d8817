package hibouair_test

import (
  "encoding/hex"
  "errors"
  "math"
  "reflect"
  "testing"

  ble_mod "github.com/go-ble/ble"
  "github.com/robertof/go-hibouair-exporter/device"
  "github.com/robertof/go-hibouair-exporter/device/hibouair"
)

const co2BoardPayload = "0201061BFF5B07050422005A0000BA27C60017013E0000000000000001C002"

func TestDecode_CO2Board(t *testing.T) {
  got := hibouair.Decode(co2BoardPayload)

  want := device.Reading{
    ManufacturerID:  0x5B07,
    BeaconNumber:    0x05,
    BoardType:       device.BoardTypeCO2,
    BoardID:         [3]byte{0x22, 0x00, 0x5A},
    AmbientLightRaw: 0,
    PressureRaw:     0x27BA,
    TemperatureRaw:  0x00C6,
    HumidityRaw:     0x0117,
    VOCRaw:          0x003E,
    CO2Raw:          0xC001,
    VOCType:         device.VOCTypePPM,
  }

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("Decode(%q): got %+#v, wanted %+#v", co2BoardPayload, got, want)
  }

  if id := got.ID(); id != 0x22005A {
    t.Errorf("ID(): got %06X, wanted 22005A", id)
  }

  if s := got.BoardType.String(); s != "CO2" {
    t.Errorf("BoardType: got %q, wanted CO2", s)
  }
}

func TestDecode_ScaledValues(t *testing.T) {
  r := hibouair.Decode(co2BoardPayload)

  checks := []struct {
    name      string
    got, want float64
  }{
    {"PressureHPa", r.PressureHPa(), 1017.0},
    {"TemperatureCelsius", r.TemperatureCelsius(), 19.8},
    {"RelativeHumidity", r.RelativeHumidity(), 27.9},
    {"VOC", r.VOC(), 0.62},
    {"PM2_5", r.PM2_5(), 0},
  }

  for _, c := range checks {
    if math.Abs(c.got-c.want) > 1e-9 {
      t.Errorf("%s: got %v, wanted %v", c.name, c.got, c.want)
    }
  }

  if d := r.VOCDisplay(); d != "0.62 ppm" {
    t.Errorf("VOCDisplay(): got %q, wanted %q", d, "0.62 ppm")
  }
}

func TestDecode_NegativeTemperature(t *testing.T) {
  // temperature bytes 9CFF -> 0xFF9C -> -100 -> -10.0C
  payload := co2BoardPayload[:32] + "9CFF" + co2BoardPayload[36:]

  if got := hibouair.Decode(payload).TemperatureCelsius(); got != -10.0 {
    t.Fatalf("TemperatureCelsius(): got %v, wanted -10", got)
  }
}

func TestDecode_ParticulateMatterBoard(t *testing.T) {
  // PM1.0 = 12.3, PM2.5 = 25.6, PM10 = 100.0
  payload := co2BoardPayload[:16] + "03" + co2BoardPayload[18:44] + "7B000001E803" + "0000" + "01"

  r := hibouair.Decode(payload)

  if r.BoardType != device.BoardTypeParticulateMatter {
    t.Fatalf("BoardType: got %v, wanted PM", r.BoardType)
  }

  if r.PM1_0() != 12.3 || r.PM2_5() != 25.6 || r.PM10() != 100.0 {
    t.Fatalf("got PM1.0=%v PM2.5=%v PM10=%v", r.PM1_0(), r.PM2_5(), r.PM10())
  }

  if d := r.VOCDisplay(); d != "62" {
    t.Fatalf("VOCDisplay() for resistance type: got %q, wanted bare value", d)
  }
}

func TestDecode_Truncated(t *testing.T) {
  payload := co2BoardPayload[:40]

  got := hibouair.Decode(payload)

  want := device.Reading{
    ManufacturerID: 0x5B07,
    BeaconNumber:   0x05,
    BoardType:      device.BoardTypeCO2,
    BoardID:        [3]byte{0x22, 0x00, 0x5A},
    PressureRaw:    0x27BA,
    TemperatureRaw: 0x00C6,
    HumidityRaw:    0x0117,
  }

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("Decode(%q): got %+#v, wanted %+#v", payload, got, want)
  }
}

func TestDecode_InvalidFieldDoesNotAbort(t *testing.T) {
  // garbage in the pressure field only
  payload := co2BoardPayload[:28] + "ZZZZ" + co2BoardPayload[32:]

  got := hibouair.Decode(payload)

  if got.PressureRaw != 0 {
    t.Errorf("PressureRaw: got %v, wanted 0", got.PressureRaw)
  }

  if got.TemperatureRaw != 0x00C6 || got.VOCType != device.VOCTypePPM {
    t.Errorf("fields after the invalid one were not decoded: %+#v", got)
  }
}

func TestDecode_Empty(t *testing.T) {
  if got := hibouair.Decode(""); !reflect.DeepEqual(got, device.Reading{}) {
    t.Fatalf("Decode(\"\"): got %+#v, wanted zero reading", got)
  }
}

func TestByteSwap16(t *testing.T) {
  if got := hibouair.ByteSwap16(0x27C6); got != 0xC627 {
    t.Fatalf("ByteSwap16(0x27C6): got %d, wanted 50727", got)
  }
}

func TestParseAdvertisement(t *testing.T) {
  raw, err := hex.DecodeString(co2BoardPayload)
  if err != nil {
    t.Fatal(err)
  }

  advertisement := FakeAdvertisement{
    manufacturerData: raw[5:],
    addr:             ble_mod.NewAddr("D1:79:29:DB:CB:CC"),
  }

  got, err := hibouair.Backend{}.ParseAdvertisement(advertisement)
  if err != nil {
    t.Fatalf("ParseAdvertisement() got error: %v", err)
  }

  if want := hibouair.Decode(co2BoardPayload); !reflect.DeepEqual(got, want) {
    t.Fatalf("ParseAdvertisement(): got %+#v, wanted %+#v", got, want)
  }
}

func TestParseAdvertisement_OtherManufacturer(t *testing.T) {
  advertisement := FakeAdvertisement{
    manufacturerData: []byte{0x4c, 0x00, 0x02, 0x15},
  }

  _, err := hibouair.Backend{}.ParseAdvertisement(advertisement)

  if !errors.Is(err, device.ErrUnknownManufacturer) {
    t.Fatalf("ParseAdvertisement(): got %v, wanted ErrUnknownManufacturer", err)
  }
}

func TestParseAdvertisement_Short(t *testing.T) {
  advertisement := FakeAdvertisement{
    manufacturerData: []byte{0x5b, 0x07, 0x05, 0x04},
  }

  _, err := hibouair.Backend{}.ParseAdvertisement(advertisement)

  if !errors.Is(err, device.ErrInvalidData) {
    t.Fatalf("ParseAdvertisement(): got %v, wanted ErrInvalidData", err)
  }
}

type FakeAdvertisement struct {
  name string
  manufacturerData []byte
  addr ble_mod.Addr
}

func (f FakeAdvertisement) LocalName() string {
  return f.name
}

func (f FakeAdvertisement) ManufacturerData() []byte {
  return f.manufacturerData
}

func (f FakeAdvertisement) ServiceData() []ble_mod.ServiceData {
  return nil
}

func (f FakeAdvertisement) Services() []ble_mod.UUID {
  return nil
}

func (f FakeAdvertisement) OverflowService() []ble_mod.UUID {
  return nil
}

func (f FakeAdvertisement) TxPowerLevel() int {
  return 0
}

func (f FakeAdvertisement) Connectable() bool {
  return false
}

func (f FakeAdvertisement) SolicitedService() []ble_mod.UUID {
  return nil
}

func (f FakeAdvertisement) RSSI() int {
  return 0
}

func (f FakeAdvertisement) Addr() ble_mod.Addr {
  return f.addr
}
