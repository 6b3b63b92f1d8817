package bleuio

import (
	"encoding/hex"
	"strings"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux/adv"
)

type Advertisement = ble.Advertisement
type Addr = ble.Addr

// advertising PDU types as reported in the "type" field of scan results.
const (
	advTypeInd       = 0
	advTypeDirectInd = 1
)

type scanAdvertisement struct {
	addr        ble.Addr
	rssi        int
	name        string
	connectable bool
	packet      *adv.Packet
}

// ParseAddr strips the "[type]" prefix the dongle puts in front of addresses, e.g.
// "[1]D1:79:29:DB:CB:CC".
func ParseAddr(s string) Addr {
	if strings.HasPrefix(s, "[") {
		if i := strings.IndexByte(s, ']'); i >= 0 {
			s = s[i+1:]
		}
	}

	return ble.NewAddr(strings.TrimSpace(s))
}

func newAdvertisement(addr string, rssi int64, advType int64, dataHex string, name string) Advertisement {
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		data = nil
	}

	return &scanAdvertisement{
		addr:        ParseAddr(addr),
		rssi:        int(rssi),
		name:        name,
		connectable: advType == advTypeInd || advType == advTypeDirectInd,
		packet:      adv.NewRawPacket(data),
	}
}

// Advertisement exposes the scan hit through the go-ble interface.
func (s ScanFindData) Advertisement() Advertisement {
	return newAdvertisement(s.Address, s.RSSI, s.AdvertisingType, s.DataHex, "")
}

func (s ScanTarget) Advertisement() Advertisement {
	return ScanFindData(s).Advertisement()
}

// Advertisement for a plain scan hit carries no payload, only address, RSSI and name.
func (s ScanData) Advertisement() Advertisement {
	return newAdvertisement(s.Address, s.RSSI, advTypeInd, "", s.Name)
}

func (a *scanAdvertisement) LocalName() string {
	if n := a.packet.LocalName(); n != "" {
		return n
	}

	return a.name
}

func (a *scanAdvertisement) ManufacturerData() []byte {
	return a.packet.ManufacturerData()
}

func (a *scanAdvertisement) ServiceData() []ble.ServiceData {
	return a.packet.ServiceData()
}

func (a *scanAdvertisement) Services() []ble.UUID {
	return a.packet.UUIDs()
}

func (a *scanAdvertisement) OverflowService() []ble.UUID {
	return nil
}

func (a *scanAdvertisement) TxPowerLevel() int {
	if p, ok := a.packet.TxPower(); ok {
		return p
	}

	return 127
}

func (a *scanAdvertisement) Connectable() bool {
	return a.connectable
}

func (a *scanAdvertisement) SolicitedService() []ble.UUID {
	return a.packet.ServiceSol()
}

func (a *scanAdvertisement) RSSI() int {
	return a.rssi
}

func (a *scanAdvertisement) Addr() ble.Addr {
	return a.addr
}
