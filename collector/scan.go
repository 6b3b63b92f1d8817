package collector

import (
	"github.com/robertof/go-hibouair-exporter/bleuio"
	"github.com/robertof/go-hibouair-exporter/device/hibouair"
)

func (m *Machine) notifyAdvertisement(a bleuio.Advertisement) {
	m.log.Trace().
		Stringer("Address", a.Addr()).
		Str("LocalName", a.LocalName()).
		Int("RSSI", a.RSSI()).
		Hex("ManufacturerData", a.ManufacturerData()).
		Msg("collector: received advertisement")

	if m.opts.OnAdvertisement != nil {
		m.opts.OnAdvertisement(a)
	}
}

// handleScanFindData decodes the payload of a scan hit and stores the reading. Short
// payloads are skipped.
func (m *Machine) handleScanFindData(sf bleuio.ScanFindData) {
	m.notifyAdvertisement(sf.Advertisement())

	if len(sf.DataHex) <= hibouair.MinPayloadLength {
		m.log.Trace().
			Str("Address", sf.Address).
			Int("Length", len(sf.DataHex)).
			Msg("collector: payload too short, not decoding")
		return
	}

	reading := hibouair.Decode(sf.DataHex)

	m.registry.Upsert(reading)

	for _, sink := range m.opts.Sinks {
		sink.Upsert(reading)
	}

	m.log.Debug().
		Str("Address", sf.Address).
		Int64("RSSI", sf.RSSI).
		Str("ID", reading.IDString()).
		Stringer("Reading", reading).
		Msg("collector: decoded sensor reading")
}
