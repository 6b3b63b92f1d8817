package collector

import "strconv"

// State is the position of the dongle in the configuration handshake.
type State uint8

const (
	StateInit State = iota
	StateEchoOff
	StateVerboseOn
	StateScanFilterSet
	StateScanning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateEchoOff:
		return "EchoOff"
	case StateVerboseOn:
		return "VerboseOn"
	case StateScanFilterSet:
		return "ScanFilterSet"
	case StateScanning:
		return "Scanning"
	case StateClosed:
		return "Closed"
	default:
		panic("unknown State value: " + strconv.Itoa(int(s)))
	}
}
